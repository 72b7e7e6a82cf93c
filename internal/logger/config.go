package logger

import "fmt"

// Config represents logging configuration
type Config struct {
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"` // debug, info, warn, error
	Console    bool   `mapstructure:"console"`
}

// DefaultConfig returns a console-only info logger configuration
func DefaultConfig() *Config {
	return &Config{
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		Level:      "info",
		Console:    true,
	}
}

// SetDefaults returns a copy with zero values replaced by defaults
func (cfg *Config) SetDefaults() *Config {
	out := *cfg
	def := DefaultConfig()
	if out.MaxSize <= 0 {
		out.MaxSize = def.MaxSize
	}
	if out.MaxBackups <= 0 {
		out.MaxBackups = def.MaxBackups
	}
	if out.MaxAge <= 0 {
		out.MaxAge = def.MaxAge
	}
	if out.Level == "" {
		out.Level = def.Level
	}
	if out.File == "" {
		out.Console = true
	}
	return &out
}

// Validate validates logging configuration
func (cfg *Config) Validate() error {
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}
	return nil
}
