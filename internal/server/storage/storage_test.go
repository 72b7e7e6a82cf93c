package storage

import (
	"context"
	"path/filepath"
	"testing"

	"hostexposer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStorage(t *testing.T) Storage {
	t.Helper()
	cfg := &Config{
		Driver:      DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "data.sqlite"),
		AutoMigrate: true,
	}
	s, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureClient(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	r, err := s.EnsureClient(ctx, "c1", "t0")
	require.NoError(t, err)
	assert.Equal(t, &Record{ID: "c1", Name: "c1", CreateTime: "t0", LastFetchTime: "t0"}, r)

	// second call keeps the original row
	r, err = s.EnsureClient(ctx, "c1", "t9")
	require.NoError(t, err)
	assert.Equal(t, "t0", r.CreateTime)
	assert.Equal(t, "t0", r.LastFetchTime)
}

func TestGetClientsAndUpdateFetchTime(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.EnsureClient(ctx, id, "t0")
		require.NoError(t, err)
	}

	require.NoError(t, s.UpdateFetchTime(ctx, []string{"a", "c"}, "t1"))
	require.NoError(t, s.UpdateFetchTime(ctx, nil, "t2"))

	records, err := s.GetClients(ctx, []string{"a", "b", "c", "missing"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "t1", records["a"].LastFetchTime)
	assert.Equal(t, "t0", records["b"].LastFetchTime)
	assert.Equal(t, "t1", records["c"].LastFetchTime)

	empty, err := s.GetClients(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRenameClient(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.EnsureClient(ctx, "c1", "t0")
	require.NoError(t, err)

	require.NoError(t, s.RenameClient(ctx, "c1", "Office NAS"))
	require.NoError(t, s.RenameClient(ctx, "c1", "Office NAS"))

	records, err := s.GetClients(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, "Office NAS", records["c1"].Name)
	assert.Equal(t, types.Entity{ID: "c1", Name: "Office NAS", CreateTime: "t0", LastFetchTime: "t0"}, records["c1"].Entity())

	err = s.RenameClient(ctx, "missing", "x")
	assert.ErrorIs(t, err, types.ErrClientNotFound)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "data.sqlite")
	cfg := &Config{Driver: DriverSQLite, DSN: dsn, AutoMigrate: true}

	s, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = s.EnsureClient(context.Background(), "c1", "t0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(&Config{Driver: DriverSQLite, DSN: dsn, AutoMigrate: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	records, err := s.GetClients(context.Background(), []string{"c1"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStatsAndPing(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Ping(context.Background()))

	_, err := s.GetClients(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Positive(t, s.Stats().QueryCount)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Driver: "oracle", DSN: "x"}
	assert.Error(t, cfg.Validate())

	_, err := New(&Config{Driver: "oracle", DSN: "x"}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, types.ErrInvalidDriver)

	cfg = &Config{Driver: DriverSQLite, DSN: "data.sqlite"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Options().MaxOpenConns)

	cfg = &Config{Driver: DriverPostgres, DSN: "postgres://localhost/db"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 25, cfg.Options().MaxOpenConns)
}
