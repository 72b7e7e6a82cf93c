package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostexposer/internal/logger"
	"hostexposer/internal/retry"
	"hostexposer/internal/server/api"
	"hostexposer/internal/server/auth"
	"hostexposer/internal/server/config"
	"hostexposer/internal/server/events"
	"hostexposer/internal/server/hub"
	"hostexposer/internal/server/service"
	"hostexposer/internal/server/storage"
	"hostexposer/internal/times"
	"hostexposer/internal/version"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "Port to listen on, overrides server.address")
	password := flag.String("pwd", "", "Password clients and the dashboard must present")
	randomLength := flag.Int("random-password-length", 0, "Length of the generated password when none is set")
	logLevel := flag.String("max-log-level", "", "Maximum log level: debug, info, warn or error")
	utcOffset := flag.String("utc-offset", "", "Offset used for stored timestamps, e.g. +08:00")
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
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := applyFlags(cfg, *port, *password, *randomLength, *logLevel, *utcOffset); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Invalid flags: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log = log.Named("server")
	defer log.Sync()
	retry.SetLogger(log)

	log.Info("Starting hostexposer server",
		zap.String("version", version.GetInfo().Version))

	if cfg.Server.Password == "" {
		cfg.Server.Password, err = auth.RandomPassword(cfg.Server.RandomPasswordLength)
		if err != nil {
			log.Fatal("Failed to generate password", zap.Error(err))
		}
		log.Warn("No password configured, generated one",
			zap.String("password", cfg.Server.Password))
	}
	authenticator := auth.NewAuthenticator(cfg.Server.Password)

	clock, err := times.NewClockFromOffset(cfg.Server.UTCOffset)
	if err != nil {
		log.Fatal("Invalid UTC offset", zap.Error(err))
	}

	// Initialize storage
	store, err := storage.New(&cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	publisher, err := events.New(cfg.Events.PublisherConfig(), log)
	if err != nil {
		log.Fatal("Failed to initialize event publisher", zap.Error(err))
	}

	// Initialize service and the exposer hub
	svc := service.New(store, nil, service.Options{
		FetchTimeout: cfg.Hub.FetchTimeout,
		Clock:        clock,
		Publisher:    publisher,
	}, log)
	h := hub.New(cfg.Hub.HubSettings(), authenticator, svc, log)
	svc.SetRegistry(service.HubRegistry{Hub: h})

	router := api.NewRouter(cfg, svc, h.Serve, authenticator, log)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in background
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("Server error", zap.Error(err))
	}

	// Graceful shutdown
	log.Info("Starting graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	h.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := svc.Stop(); err != nil {
		log.Error("Service stop error", zap.Error(err))
	}

	log.Info("Shutdown complete")
}

// applyFlags lets command line flags override the loaded configuration
func applyFlags(cfg *config.Config, port int, password string, randomLength int, logLevel, utcOffset string) error {
	if port != 0 {
		if port < 1 || port > 65535 {
			return fmt.Errorf("port out of range: %d", port)
		}
		cfg.Server.Address = fmt.Sprintf(":%d", port)
	}
	if password != "" {
		cfg.Server.Password = password
	}
	if randomLength != 0 {
		cfg.Server.RandomPasswordLength = randomLength
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if utcOffset != "" {
		cfg.Server.UTCOffset = utcOffset
	}
	return cfg.Validate()
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
