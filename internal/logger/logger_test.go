package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "server.log")

	log, err := New(&Config{File: file, Level: "debug"})
	require.NoError(t, err)

	log.Info("client connected")
	_ = log.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "client connected")
	assert.Contains(t, string(data), `"level":"INFO"`)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "trace"})
	assert.Error(t, err)
}

func TestNewNilConfig(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestSetDefaults(t *testing.T) {
	cfg := (&Config{}).SetDefaults()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.True(t, cfg.Console)
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("WARN")
	assert.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}
