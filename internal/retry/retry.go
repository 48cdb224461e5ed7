// Package retry runs operations with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/iconidentify/makanmap/internal/domain"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// JitterFraction spreads each delay by +/- this fraction (0.0-1.0).
	JitterFraction float64
}

// DefaultConfig returns sensible defaults for retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   2 * time.Second,
		MaxDelay:       30 * time.Second,
		BackoffFactor:  2.0,
		JitterFraction: 0.2,
	}
}

// IsRetryable is the default classifier. Cancellation and credential or
// quota failures are permanent; everything else is retried.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, domain.ErrInvalidAPIKey), errors.Is(err, domain.ErrQuotaExceeded):
		return false
	case errors.Is(err, domain.ErrChannelNotFound), errors.Is(err, domain.ErrVideoNotFound):
		return false
	}
	return true
}

// Do executes fn with exponential backoff retry logic.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	return DoWithCheck(ctx, cfg, fn, IsRetryable)
}

// DoWithCheck executes fn with retry, letting shouldRetry decide which errors
// are worth another attempt.
func DoWithCheck[T any](
	ctx context.Context,
	cfg Config,
	fn func(context.Context) (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	var lastErr error
	var zero T

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := cfg.InitialDelay

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if shouldRetry != nil && !shouldRetry(err) {
			return zero, err
		}

		// Don't wait after the last attempt
		if attempt == attempts-1 {
			break
		}

		sleep := delay + jitter(delay, cfg.JitterFraction)
		if cfg.MaxDelay > 0 && sleep > cfg.MaxDelay {
			sleep = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(sleep):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	if attempts == 1 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// jitter returns a random duration in [-fraction*d, +fraction*d].
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return 0
	}
	span := float64(d) * fraction
	return time.Duration((rand.Float64()*2 - 1) * span)
}
