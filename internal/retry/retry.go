// Package retry re-runs failed page requests with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/logging"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts  int           // Total attempts including the first; 1 disables retry
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Cap on the delay between attempts
	Multiplier   float64       // Growth factor per attempt

	// Retryable decides whether an error is worth another attempt.
	// Defaults to errors.IsRetryable.
	Retryable func(error) bool

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns a configuration with the given attempt budget.
// Pattern: 1s, 2s, 4s, 8s, max 30s
func DefaultRetryConfig(maxAttempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryResult contains information about the retry operation
type RetryResult struct {
	Attempts      int           `json:"attempts"`
	Success       bool          `json:"success"`
	TotalDuration time.Duration `json:"totalDuration"`
	LastError     error         `json:"lastError,omitempty"`
}

// RetryFunc is a function that can be retried
type RetryFunc func(ctx context.Context, attempt int) error

// WithExponentialBackoff executes fn until it succeeds, returns a
// non-retryable error, or the attempt budget is spent.
func WithExponentialBackoff(ctx context.Context, config *RetryConfig, fn RetryFunc) *RetryResult {
	logger := logging.FromContext(ctx)
	startTime := time.Now()
	result := &RetryResult{}

	retryable := config.Retryable
	if retryable == nil {
		retryable = apperrors.IsRetryable
	}
	sleep := config.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.LastError = nil
			result.TotalDuration = time.Since(startTime)
			if attempt > 1 {
				logger.WithFields(map[string]interface{}{
					"attempts":      attempt,
					"totalDuration": result.TotalDuration.String(),
				}).Info("Operation succeeded after retry")
			}
			return result
		}
		result.LastError = err

		if attempt >= maxAttempts || !retryable(err) {
			break
		}
		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			break
		}

		delay := calculateDelay(config, attempt)
		logger.WithFields(map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": maxAttempts,
			"delay":       delay.String(),
			"error":       err.Error(),
		}).Warn("Operation failed, retrying with exponential backoff")

		if err := sleep(ctx, delay); err != nil {
			result.LastError = err
			break
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result
}

// Do runs fn under config and returns the last error on failure. Errors from
// a single attempt are returned unwrapped.
func Do(ctx context.Context, config *RetryConfig, fn RetryFunc) error {
	result := WithExponentialBackoff(ctx, config, fn)
	if result.Success {
		return nil
	}
	if result.Attempts <= 1 {
		return result.LastError
	}
	return fmt.Errorf("operation failed after %d attempts: %w", result.Attempts, result.LastError)
}

// calculateDelay calculates the delay for the next retry attempt
func calculateDelay(config *RetryConfig, attempt int) time.Duration {
	// initialDelay * multiplier^(attempt-1)
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
