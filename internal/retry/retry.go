// Package retry runs operations against flaky external services with
// exponential backoff and jitter. Only transient failures are retried;
// permanent errors stop the loop immediately.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config controls the retry loop.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig is tuned for short market-data calls.
var DefaultConfig = Config{
	MaxRetries:     2,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// Do invokes fn until it succeeds, fails permanently, the retry budget is
// spent, or ctx is done.
func Do(ctx context.Context, logger *logrus.Logger, op string, cfg Config, fn func(context.Context) error) error {
	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s canceled: %w", op, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == cfg.MaxRetries {
			break
		}
		if logger != nil {
			logger.WithField("attempt", attempt+1).
				Debugf("%s failed transiently, retrying in %v: %v", op, backoff, err)
		}
		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff, cfg.MaxBackoff)
		case <-ctx.Done():
			return fmt.Errorf("%s canceled during backoff: %w", op, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempt(s): %w", op, cfg.MaxRetries+1, lastErr)
}

// nextBackoff grows the delay 1.5x, capped, plus up to 25% random jitter.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	backoff := time.Duration(float64(current) * 1.5)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		if jitter, err := rand.Int(rand.Reader, big.NewInt(maxJitter)); err == nil {
			backoff += time.Duration(jitter.Int64())
		}
	}
	return backoff
}

// IsTransient classifies an error as worth retrying: network hiccups,
// timeouts, and retryable HTTP statuses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"network",
		"dns",
		"tcp",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
