package callguard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/time/rate"

	"github.com/roach88/execdef/internal/execution"
)

// Config holds the guard's throttling and retry settings.
type Config struct {
	// RequestsPerSecond is the sustained call rate. Zero disables limiting.
	RequestsPerSecond float64
	// Burst is the maximum number of calls allowed in a burst.
	Burst int
	// MaxAttempts is the number of attempts per call, including the first.
	MaxAttempts int
	// Backoff is the delay before the first retry; it doubles per retry.
	Backoff time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 0,
		Burst:             1,
		MaxAttempts:       3,
		Backoff:           50 * time.Millisecond,
	}
}

// Guard implements execution.CallGuard.
type Guard struct {
	cfg       Config
	limiter   *rate.Limiter
	retryable func(error) bool
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Guard.
type Option func(*Guard)

// WithRetryable replaces the predicate deciding which errors are retried.
func WithRetryable(fn func(error) bool) Option {
	return func(g *Guard) {
		g.retryable = fn
	}
}

// WithSleep replaces the backoff sleep. Tests use it to avoid waiting.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Guard) {
		g.sleep = fn
	}
}

// New creates a Guard.
func New(cfg Config, opts ...Option) *Guard {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	g := &Guard{
		cfg:       cfg,
		retryable: IsTransient,
		sleep:     sleepContext,
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ execution.CallGuard = (*Guard)(nil)

// Call runs fn, retrying transient failures. The final error is passed
// through mapper.
func (g *Guard) Call(ctx context.Context, operation string, fn func(ctx context.Context) error, mapper execution.ErrorMapper) error {
	backoff := g.cfg.Backoff
	for attempt := 1; ; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				callsTotal.WithLabelValues(operation, outcomeCancelled).Inc()
				return mapper(err)
			}
		}

		start := time.Now()
		err := fn(ctx)
		callDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

		if err == nil {
			callsTotal.WithLabelValues(operation, outcomeOK).Inc()
			return nil
		}
		if ctx.Err() != nil {
			callsTotal.WithLabelValues(operation, outcomeCancelled).Inc()
			return mapper(err)
		}
		if attempt >= g.cfg.MaxAttempts || !g.retryable(err) {
			callsTotal.WithLabelValues(operation, outcomeError).Inc()
			return mapper(err)
		}

		retriesTotal.WithLabelValues(operation).Inc()
		slog.Warn("backend call failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if err := g.sleep(ctx, backoff); err != nil {
			callsTotal.WithLabelValues(operation, outcomeCancelled).Inc()
			return mapper(err)
		}
		backoff *= 2
	}
}

// IsTransient reports whether err is worth retrying: SQLite busy and
// locked errors. Context errors are never transient.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
