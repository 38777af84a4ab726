package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fastConfig keeps test runs quick.
func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRecoversAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	calls := 0
	wantErr := errors.New("still down")
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() = %v, want %v", err, wantErr)
	}
	if calls != 4 { // first attempt + 3 retries
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDoWithResultReturnsValue(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("timeout")
		}
		return "pool", nil
	})
	if err != nil {
		t.Fatalf("DoWithResult() error = %v", err)
	}
	if got != "pool" {
		t.Errorf("DoWithResult() = %q, want %q", got, "pool")
	}
}

func TestDoWithResultNilConfigUsesDefaults(t *testing.T) {
	got, err := DoWithResult(context.Background(), nil, func() (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("DoWithResult() = %d, %v; want 42, nil", got, err)
	}
}

func TestDoContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func() error { return errors.New("connection refused") })
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Do() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do() did not return after context cancellation")
	}
}

type declaredError struct{ retryable bool }

func (e *declaredError) Error() string     { return "declared" }
func (e *declaredError) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"declares retryable", &declaredError{retryable: true}, true},
		{"declares permanent", &declaredError{retryable: false}, false},
		{"wrapped declaration", fmt.Errorf("call failed: %w", &declaredError{retryable: true}), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"rate limited", errors.New("HTTP 429 too many requests"), true},
		{"server error", errors.New("503 service unavailable"), true},
		{"io timeout", errors.New("i/o timeout"), true},
		{"auth failure", errors.New("401 unauthorized"), false},
		{"plain bad input", errors.New("syntax error at or near SELECT"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoIfRetryableStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := &declaredError{retryable: false}
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("DoIfRetryable() = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries for permanent errors)", calls)
	}
}

func TestDoIfRetryableRetriesTransientError(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return &declaredError{retryable: true}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("DoIfRetryable() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestBackoffDelaysGrowAndCap(t *testing.T) {
	cfg := &Config{
		MaxRetries:   4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     25 * time.Millisecond,
		Multiplier:   2.0,
	}

	var stamps []time.Time
	_ = Do(context.Background(), cfg, func() error {
		stamps = append(stamps, time.Now())
		return errors.New("timeout")
	})

	if len(stamps) != 5 {
		t.Fatalf("attempts = %d, want 5", len(stamps))
	}
	// Nominal delays: 10, 20, 25 (capped), 25. time.After waits at least the
	// requested duration; the upper bound allows generous scheduling slack.
	wantMin := []time.Duration{10, 20, 25, 25}
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		if gap < wantMin[i-1]*time.Millisecond {
			t.Errorf("delay %d = %v, want at least %v", i, gap, wantMin[i-1]*time.Millisecond)
		}
		if gap > 200*time.Millisecond {
			t.Errorf("delay %d = %v exceeds the configured cap by too much", i, gap)
		}
	}
}
