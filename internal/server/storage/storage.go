// Package storage persists the client directory.
package storage

import (
	"context"
	"fmt"

	"hostexposer/internal/types"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Record is a stored client row. Timestamps are pre-formatted strings.
type Record struct {
	ID            string
	Name          string
	CreateTime    string
	LastFetchTime string
}

// Entity converts the record to its wire form
func (r *Record) Entity() types.Entity {
	return types.Entity{
		ID:            r.ID,
		Name:          r.Name,
		CreateTime:    r.CreateTime,
		LastFetchTime: r.LastFetchTime,
	}
}

// Storage defines the client directory store
type Storage interface {
	// EnsureClient inserts the client with name = id when absent and returns the stored row
	EnsureClient(ctx context.Context, id, now string) (*Record, error)
	// GetClients returns the stored rows for ids, keyed by id. Unknown ids are omitted.
	GetClients(ctx context.Context, ids []string) (map[string]*Record, error)
	// UpdateFetchTime sets last_fetch_time for every id
	UpdateFetchTime(ctx context.Context, ids []string, now string) error
	// RenameClient sets the display name, returning types.ErrClientNotFound for unknown ids
	RenameClient(ctx context.Context, id, name string) error
	Ping(ctx context.Context) error
	Stats() *Stats
	Close() error
}

// dialect holds the per-driver SQL differences
type dialect struct {
	sqlDriver    string
	insertIgnore string
	numbered     bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		sqlDriver:    "sqlite3",
		insertIgnore: "INSERT INTO clients (id, name, create_time, last_fetch_time) VALUES (?, ?, ?, ?) ON CONFLICT (id) DO NOTHING",
	},
	DriverMySQL: {
		sqlDriver:    "mysql",
		insertIgnore: "INSERT IGNORE INTO clients (id, name, create_time, last_fetch_time) VALUES (?, ?, ?, ?)",
	},
	DriverPostgres: {
		sqlDriver:    "postgres",
		insertIgnore: "INSERT INTO clients (id, name, create_time, last_fetch_time) VALUES (?, ?, ?, ?) ON CONFLICT (id) DO NOTHING",
		numbered:     true,
	},
}

// New opens the configured store and applies migrations when enabled
func New(cfg *Config, logger *zap.Logger) (Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidDriver, err)
	}

	d := dialects[cfg.Driver]
	base, err := NewBaseStorage(d.sqlDriver, cfg.DSN, cfg.Options(), logger)
	if err != nil {
		return nil, err
	}
	base.dialect = d

	if cfg.AutoMigrate {
		if err := ApplyMigrations(base.db, cfg.Driver, logger); err != nil {
			_ = base.Close()
			return nil, err
		}
	}

	logger.Info("Storage initialized",
		zap.String("driver", cfg.Driver),
		zap.Bool("auto_migrate", cfg.AutoMigrate))

	return base, nil
}
