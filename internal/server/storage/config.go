package storage

import (
	"fmt"
	"time"
)

// Config represents storage configuration
type Config struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	SlowQueryTime   time.Duration `mapstructure:"slow_query_time"`

	// Migration settings
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Validate validates storage configuration and fills pool defaults
func (c *Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("storage driver is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("storage DSN is required")
	}

	if c.MaxConnections == 0 {
		c.MaxConnections = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
	if c.SlowQueryTime == 0 {
		c.SlowQueryTime = time.Second
	}

	switch c.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Driver)
	}

	return nil
}

// Options returns the connection options derived from the config
func (c *Config) Options() Options {
	opts := Options{
		MaxOpenConns:    c.MaxConnections,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		QueryTimeout:    c.QueryTimeout,
		SlowQueryTime:   c.SlowQueryTime,
	}
	// sqlite serializes writers; a single connection avoids "database is locked"
	if c.Driver == DriverSQLite {
		opts.MaxOpenConns = 1
		opts.MaxIdleConns = 1
	}
	return opts
}
