// Package identity keeps the agent's stable client id on disk.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoadOrCreate returns the id stored in path. A missing, empty or unparsable
// file is replaced with a freshly generated v4 id.
func LoadOrCreate(path string, logger *zap.Logger) (uuid.UUID, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id, perr := uuid.Parse(strings.TrimSpace(string(data))); perr == nil {
			return id, nil
		}
		logger.Warn("Stored client id is invalid, generating a new one",
			zap.String("file", path))
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("No client id stored, generating one", zap.String("file", path))
	default:
		return uuid.Nil, fmt.Errorf("failed to read id file: %w", err)
	}

	id := uuid.New()
	if err := write(path, id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func write(path string, id uuid.UUID) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create id directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(id.String()), 0644); err != nil {
		return fmt.Errorf("failed to write id file: %w", err)
	}
	return nil
}
