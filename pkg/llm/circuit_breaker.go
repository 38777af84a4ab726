package llm

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState is the breaker's current mode.
type CircuitState int

const (
	// CircuitClosed: requests flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen: the provider is considered down, requests are refused.
	CircuitOpen
	// CircuitHalfOpen: one probe request is allowed through to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes the breaker.
type CircuitBreakerConfig struct {
	// Threshold is the consecutive-failure count that trips the circuit.
	Threshold int `yaml:"threshold" env:"LLM_BREAKER_THRESHOLD" env-default:"5"`
	// ResetAfter is how long the circuit stays open before probing.
	ResetAfter time.Duration `yaml:"reset_after" env:"LLM_BREAKER_RESET_AFTER" env-default:"30s"`
}

// DefaultCircuitBreakerConfig returns the stock settings.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Threshold: 5, ResetAfter: 30 * time.Second}
}

// CircuitBreaker trips open after N consecutive provider failures and
// half-opens after a cooldown.
type CircuitBreaker struct {
	mu               sync.RWMutex
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	state            CircuitState
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Threshold < 1 {
		cfg.Threshold = 5
	}
	if cfg.ResetAfter <= 0 {
		cfg.ResetAfter = 30 * time.Second
	}
	return &CircuitBreaker{threshold: cfg.Threshold, resetAfter: cfg.ResetAfter, state: CircuitClosed}
}

// Allow reports whether a request may proceed. An open circuit transitions
// to half-open once the cooldown has elapsed, admitting a single probe.
func (cb *CircuitBreaker) Allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true, nil
	case CircuitOpen:
		if time.Since(cb.lastFailure) > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return true, nil
		}
		return false, fmt.Errorf("provider down: %d consecutive failures, last %v ago",
			cb.consecutiveFails, time.Since(cb.lastFailure).Round(time.Second))
	case CircuitHalfOpen:
		return false, fmt.Errorf("probe request already in flight")
	default:
		return false, fmt.Errorf("circuit breaker in unknown state %v", cb.state)
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failure, tripping the circuit at the threshold. A
// failed half-open probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen || cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// ConsecutiveFailures returns the current failure streak.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveFails
}
