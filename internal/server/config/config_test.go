package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":3030", cfg.Server.Address)
	assert.Equal(t, 16, cfg.Server.RandomPasswordLength)
	assert.Empty(t, cfg.Server.Password)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "data.sqlite", cfg.Storage.DSN)
	assert.True(t, cfg.Storage.AutoMigrate)
	assert.Equal(t, 10*time.Second, cfg.Hub.HandshakeTimeout)
	assert.Equal(t, 10*time.Second, cfg.Hub.FetchTimeout)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":4040"
  utc_offset: "+08:00"
storage:
  dsn: "/var/lib/exposer/data.sqlite"
hub:
  fetch_timeout: 3s
`), 0o600))

	t.Setenv("EXPOSER_SERVER_PASSWORD", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":4040", cfg.Server.Address)
	assert.Equal(t, "+08:00", cfg.Server.UTCOffset)
	assert.Equal(t, "from-env", cfg.Server.Password)
	assert.Equal(t, "/var/lib/exposer/data.sqlite", cfg.Storage.DSN)
	assert.Equal(t, 3*time.Second, cfg.Hub.FetchTimeout)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad offset", "server:\n  utc_offset: \"8 hours\"\n"},
		{"password length", "server:\n  random_password_length: 0\n"},
		{"driver", "storage:\n  driver: oracle\n"},
		{"events driver", "events:\n  driver: nats\n"},
		{"kafka without topic", "events:\n  driver: kafka\n  kafka:\n    topic: \"\"\n"},
		{"log level", "log:\n  level: trace\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "server.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
