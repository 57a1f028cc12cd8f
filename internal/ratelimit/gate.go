// Package ratelimit paces outbound requests to the leaderboard API.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle modes understood by NewGate.
const (
	ModeFixed = "fixed"
	ModeToken = "token"
)

// DefaultInterval is the pause between consecutive page requests.
const DefaultInterval = 500 * time.Millisecond

// ErrContextCancelled is returned when the context ends while waiting at the
// gate. The context error is wrapped alongside it.
var ErrContextCancelled = errors.New("context cancelled while waiting at gate")

// Gate is passed once before every outbound request.
type Gate interface {
	Wait(ctx context.Context) error
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// GateConfig holds configuration for a gate.
type GateConfig struct {
	// Mode selects the implementation: "fixed" or "token". Default: fixed.
	Mode string

	// Interval is the spacing between requests. Zero disables waiting.
	Interval time.Duration

	// Sleep replaces the real sleep in tests. Only used by the fixed gate.
	Sleep SleepFunc
}

// Validate checks if the configuration is valid.
func (c *GateConfig) Validate() error {
	if c.Interval < 0 {
		return errors.New("interval cannot be negative")
	}
	switch c.Mode {
	case "", ModeFixed, ModeToken:
		return nil
	default:
		return fmt.Errorf("unknown throttle mode %q", c.Mode)
	}
}

// NewGate creates the gate selected by cfg.Mode.
func NewGate(cfg *GateConfig) (Gate, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Mode == ModeToken {
		return NewTokenBucketGate(cfg.Interval), nil
	}
	return NewIntervalGate(cfg.Interval, cfg.Sleep), nil
}

// IntervalGate lets the first request through immediately and waits a fixed
// interval before every later one. The interval is measured from the moment
// Wait is called, so it adds to the request latency rather than overlapping it.
type IntervalGate struct {
	interval time.Duration
	sleep    SleepFunc
	passed   int
	mu       sync.Mutex
}

// NewIntervalGate creates a fixed-interval gate. A nil sleep uses the real clock.
func NewIntervalGate(interval time.Duration, sleep SleepFunc) *IntervalGate {
	if sleep == nil {
		sleep = contextSleep
	}
	return &IntervalGate{
		interval: interval,
		sleep:    sleep,
	}
}

// Wait blocks for the interval on every call after the first.
func (g *IntervalGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	if g.passed > 0 && g.interval > 0 {
		if err := g.sleep(ctx, g.interval); err != nil {
			return err
		}
	}
	g.passed++
	return nil
}

// Passed returns how many callers have gone through the gate.
func (g *IntervalGate) Passed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.passed
}

// TokenBucketGate spaces request starts by the interval with a burst of one.
type TokenBucketGate struct {
	limiter *rate.Limiter
}

// NewTokenBucketGate creates a token bucket gate. A zero interval never blocks.
func NewTokenBucketGate(interval time.Duration) *TokenBucketGate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TokenBucketGate{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until a token is available.
func (g *TokenBucketGate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr)
		}
		// The limiter refuses up front when the next token is past the deadline
		if _, ok := ctx.Deadline(); ok {
			return fmt.Errorf("%w: %v", cancelled(context.DeadlineExceeded), err)
		}
		return err
	}
	return nil
}

// Limit returns the configured rate.
func (g *TokenBucketGate) Limit() rate.Limit {
	return g.limiter.Limit()
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return cancelled(ctx.Err())
	case <-timer.C:
		return nil
	}
}

// cancelled keeps both the gate sentinel and the context cause in the chain
func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrContextCancelled, cause)
}
