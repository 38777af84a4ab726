// Package retry provides exponential backoff with jitter for the engine's
// two flaky collaborators: the generation provider and the database pool.
// The repair loop's own attempt budget is separate; this package only covers
// transport-level transience underneath a single logical call.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// Config defines backoff behavior for one call site.
type Config struct {
	// MaxRetries is how many times the call is re-attempted after the first
	// failure.
	MaxRetries int
	// InitialDelay is the wait before the first retry; each further retry
	// multiplies it by Multiplier, capped at MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// JitterFactor randomizes each delay by +/- this fraction so concurrent
	// questions hitting the same dead provider do not retry in lockstep.
	JitterFactor float64
}

// DefaultConfig suits pool creation and provider calls: three retries from
// 100ms, doubling, capped at 5s, 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (c *Config) jittered(delay time.Duration) time.Duration {
	if c.JitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * c.JitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

func (c *Config) next(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * c.Multiplier)
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Do runs fn with backoff until it succeeds, the retries are exhausted, or
// the context is canceled during a wait.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that return a value (pgxpool.New, a
// provider completion). The last result is returned alongside the last error
// when every attempt fails.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.jittered(delay)):
				delay = cfg.next(delay)
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}
	return result, lastErr
}

// RetryableError lets structured errors declare their own retryability.
// Both llm.Error and dberr.Error implement it, so this package never has to
// import either.
type RetryableError interface {
	error
	IsRetryable() bool
}

// retryablePatterns is the fallback classification for plain errors that
// carry no structure: transport failures and provider backpressure.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"deadlock",
	"rate limit",
	"too many requests",
	"service unavailable",
	"overloaded",
	"429",
	"500",
	"502",
	"503",
	"504",
}

// IsRetryable reports whether an error is transient. A RetryableError
// answers for itself; anything else is pattern-matched against known
// transient failure text. Permanent failures (auth, bad SQL) must not burn
// backoff waits.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// DoIfRetryable runs fn with backoff, but gives up immediately on a
// non-transient error instead of spending the remaining retries on a failure
// that cannot change.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.jittered(delay)):
				delay = cfg.next(delay)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
