// Package infra provides shared infrastructure for the PagerDuty MCP server.
// The circuit breaker here fails fast while the PagerDuty API is unhealthy;
// it never retries on the caller's behalf.
package infra

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // requests flow
	CircuitOpen                         // requests rejected until cooldown elapses
	CircuitHalfOpen                     // a few probe requests allowed
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

// BreakerConfig tunes a CircuitBreaker.
type BreakerConfig struct {
	Threshold int           // consecutive failures that open the circuit
	Cooldown  time.Duration // time spent open before probing
	Probes    int           // requests admitted while half-open
}

// DefaultBreakerConfig returns the settings used for the PagerDuty API.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold: 5,
		Cooldown:  30 * time.Second,
		Probes:    1,
	}
}

// CircuitBreaker tracks consecutive PagerDuty API failures.
type CircuitBreaker struct {
	mu     sync.Mutex
	cfg    BreakerConfig
	now    func() time.Time
	notify func(CircuitState)

	state       CircuitState
	failures    int
	openedAt    time.Time
	probesInUse int
}

// NewCircuitBreaker creates a breaker; zero config fields take the defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Probes <= 0 {
		cfg.Probes = def.Probes
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers fn to be called (under the breaker lock) on every transition.
func (cb *CircuitBreaker) OnStateChange(fn func(CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.notify = fn
}

// Allow returns nil if a request may proceed, or *ErrCircuitOpen.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return cb.openErr()
		}
		cb.transition(CircuitHalfOpen)
		cb.probesInUse = 1
		return nil
	case CircuitHalfOpen:
		if cb.probesInUse < cb.cfg.Probes {
			cb.probesInUse++
			return nil
		}
		return cb.openErr()
	}
	return cb.openErr()
}

// Success records a healthy response and closes the circuit.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probesInUse = 0
	if cb.state != CircuitClosed {
		cb.transition(CircuitClosed)
	}
}

// Failure records a transport failure or 5xx response.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	switch cb.state {
	case CircuitHalfOpen:
		cb.open()
	case CircuitClosed:
		if cb.failures >= cb.cfg.Threshold {
			cb.open()
		}
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.probesInUse = 0
	cb.transition(CircuitOpen)
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	if cb.state == to {
		return
	}
	cb.state = to
	if cb.notify != nil {
		cb.notify(to)
	}
}

func (cb *CircuitBreaker) openErr() error {
	return &ErrCircuitOpen{
		RetryAt:  cb.openedAt.Add(cb.cfg.Cooldown),
		Failures: cb.failures,
	}
}

// ErrCircuitOpen is returned when the circuit breaker rejects a request
type ErrCircuitOpen struct {
	RetryAt  time.Time
	Failures int
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker is open after %d consecutive failures: PagerDuty API unavailable until %s",
		e.Failures, e.RetryAt.Format(time.RFC3339))
}
