package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Func defines the function signature for a retryable operation.
type Func func(ctx context.Context) error

var (
	loggerMu sync.RWMutex
	logger   = zap.NewNop()
)

// SetLogger allows setting a custom logger for retry operations.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func getLogger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Execute returns the wrapped error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Execute performs an operation with a retry mechanism.
func Execute(ctx context.Context, cfg *Config, op Func) error {
	if cfg == nil || !cfg.Enable {
		return unwrapPermanent(op(ctx))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}

	log := getLogger()
	var lastErr error
	attemptRetry := func(stage string, attempts int, interval time.Duration) (bool, error) {
		for i := 1; i <= attempts; i++ {
			err := op(ctx)
			if err == nil {
				return true, nil
			}
			if IsPermanent(err) {
				return false, unwrapPermanent(err)
			}
			lastErr = err
			log.Warn("Retry attempt failed",
				zap.String("stage", stage),
				zap.Int("attempt", i),
				zap.Int("attempts", attempts),
				zap.Duration("wait", interval),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(interval):
			}
		}
		return false, nil
	}

	retryStages := []struct {
		name     string
		attempts int
		interval time.Duration
	}{
		{"initial", cfg.InitialAttempts, cfg.InitialInterval},
		{"minute", cfg.MinuteAttempts, cfg.MinuteInterval},
		{"hourly", cfg.HourlyAttempts, cfg.HourlyInterval},
	}

	for _, stage := range retryStages {
		ok, err := attemptRetry(stage.name, stage.attempts, stage.interval)
		if ok {
			return nil
		}
		if err != nil {
			return err
		}
	}

	// Final retry with timeout
	finalCtx, cancel := context.WithTimeout(ctx, cfg.FinalRetryTimeout)
	defer cancel()
	err := op(finalCtx)
	if err == nil {
		return nil
	}
	if IsPermanent(err) {
		return unwrapPermanent(err)
	}
	return fmt.Errorf("operation failed after all retries: %w", lastErr)
}

func unwrapPermanent(err error) error {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err
	}
	return err
}
