package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hostexposer/internal/agent/collector"
	"hostexposer/internal/agent/config"
	"hostexposer/internal/agent/exposer"
	"hostexposer/internal/agent/identity"
	"hostexposer/internal/logger"
	"hostexposer/internal/retry"
	"hostexposer/internal/version"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	targetURI := flag.String("target-uri", "", "Server websocket URI, e.g. ws://host:3030/expose")
	password := flag.String("pwd", "", "Password for the server")
	logLevel := flag.String("max-log-level", "", "Maximum log level: debug, info, warn or error")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if *targetURI != "" {
		cfg.Agent.ServerURI = *targetURI
	}
	if *password != "" {
		cfg.Agent.Password = *password
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	log = log.Named("agent")
	defer func() {
		_ = log.Sync()
	}()
	retry.SetLogger(log)

	id, err := identity.LoadOrCreate(cfg.Agent.IDFile, log)
	if err != nil {
		log.Fatal("Failed to load client id", zap.Error(err))
	}
	log.Info("Self id", zap.String("client_id", id.String()))

	// Create context cancelled by signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := exposer.New(&cfg.Agent, id, collector.New(&cfg.Collector, log), log)
	err = e.Run(ctx)

	switch {
	case err == nil:
		log.Info("Connection closed")
	case errors.Is(err, context.Canceled):
		log.Info("Shutdown complete")
	default:
		log.Error("Exposer stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
