package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"hostexposer/internal/types"
	"hostexposer/internal/utils"

	"go.uber.org/zap"
)

// Options defines storage options
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
	SlowQueryTime   time.Duration
}

// Metrics tracks query counters
type Metrics struct {
	QueryCount     int64
	QueryErrors    int64
	SlowQueryCount int64
}

// Stats represents database statistics
type Stats struct {
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
	QueryCount      int64         `json:"query_count"`
	QueryErrors     int64         `json:"query_errors"`
	SlowQueries     int64         `json:"slow_queries"`
}

// BaseStorage implements Storage over database/sql
type BaseStorage struct {
	db      *sql.DB
	opts    Options
	dialect dialect
	logger  *zap.Logger
	metrics Metrics
}

// NewBaseStorage creates new BaseStorage
func NewBaseStorage(driver, dsn string, opts Options, logger *zap.Logger) (*BaseStorage, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			logger.Error("Failed to close database", zap.Error(cerr))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.QueryTimeout == 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.SlowQueryTime == 0 {
		opts.SlowQueryTime = time.Second
	}

	return &BaseStorage{
		db:     db,
		opts:   opts,
		logger: logger,
	}, nil
}

// EnsureClient implements Storage
func (s *BaseStorage) EnsureClient(ctx context.Context, id, now string) (*Record, error) {
	if _, err := s.ExecContext(ctx, s.dialect.insertIgnore, id, id, now, now); err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}

	records, err := s.GetClients(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	r, ok := records[id]
	if !ok {
		return nil, fmt.Errorf("client %s missing after insert", id)
	}
	return r, nil
}

// GetClients implements Storage
func (s *BaseStorage) GetClients(ctx context.Context, ids []string) (map[string]*Record, error) {
	out := make(map[string]*Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT id, name, create_time, last_fetch_time FROM clients WHERE id IN (` +
		utils.Placeholders(len(ids)) + `)`

	err := s.QueryRows(ctx, query, toArgs(ids), func(rows *sql.Rows) error {
		r := &Record{}
		if err := rows.Scan(&r.ID, &r.Name, &r.CreateTime, &r.LastFetchTime); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		out[r.ID] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFetchTime implements Storage
func (s *BaseStorage) UpdateFetchTime(ctx context.Context, ids []string, now string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE clients SET last_fetch_time = ? WHERE id IN (` + utils.Placeholders(len(ids)) + `)`
	args := append([]any{now}, toArgs(ids)...)

	if _, err := s.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update fetch time: %w", err)
	}
	return nil
}

// RenameClient implements Storage
func (s *BaseStorage) RenameClient(ctx context.Context, id, name string) error {
	result, err := s.ExecContext(ctx, `UPDATE clients SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename client: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// mysql reports zero affected rows when the name is unchanged
	records, err := s.GetClients(ctx, []string{id})
	if err != nil {
		return err
	}
	if _, ok := records[id]; !ok {
		return types.ErrClientNotFound
	}
	return nil
}

// ExecContext executes a query with the configured timeout
func (s *BaseStorage) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	s.observe(query, time.Since(start), err)

	return result, err
}

// QueryRows runs a query and calls scan for every row before the timeout is released
func (s *BaseStorage) QueryRows(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	s.observe(query, time.Since(start), err)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration failed: %w", err)
	}
	return nil
}

func (s *BaseStorage) observe(query string, duration time.Duration, err error) {
	atomic.AddInt64(&s.metrics.QueryCount, 1)
	if err != nil {
		atomic.AddInt64(&s.metrics.QueryErrors, 1)
	}

	if duration > s.opts.SlowQueryTime {
		atomic.AddInt64(&s.metrics.SlowQueryCount, 1)
		s.logger.Warn("Slow query detected",
			zap.String("query", strings.Join(strings.Fields(query), " ")),
			zap.Duration("duration", duration))
	}
}

func (s *BaseStorage) rebind(query string) string {
	if s.dialect.numbered {
		return utils.ConvertPlaceholders(query)
	}
	return query
}

// Close closes the database
func (s *BaseStorage) Close() error {
	return s.db.Close()
}

// Ping pings the database
func (s *BaseStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats returns database statistics
func (s *BaseStorage) Stats() *Stats {
	dbStats := s.db.Stats()
	return &Stats{
		OpenConnections: dbStats.OpenConnections,
		InUse:           dbStats.InUse,
		Idle:            dbStats.Idle,
		WaitCount:       dbStats.WaitCount,
		WaitDuration:    dbStats.WaitDuration,
		QueryCount:      atomic.LoadInt64(&s.metrics.QueryCount),
		QueryErrors:     atomic.LoadInt64(&s.metrics.QueryErrors),
		SlowQueries:     atomic.LoadInt64(&s.metrics.SlowQueryCount),
	}
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
