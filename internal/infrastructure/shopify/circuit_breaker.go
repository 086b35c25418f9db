package shopify

import (
	"sync"
	"time"
)

// CircuitState is the position of a circuit breaker in its state machine.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
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

// CircuitBreakerConfig configures when a breaker opens and how long it stays open.
type CircuitBreakerConfig struct {
	Threshold int
	Timeout   time.Duration
}

// DefaultCircuitBreakerConfig opens after 5 consecutive failures for 60 seconds
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold: 5,
		Timeout:   60 * time.Second,
	}
}

// CircuitSnapshot is a point-in-time view of a breaker.
type CircuitSnapshot struct {
	State               CircuitState
	ConsecutiveFailures int
	OpenedAt            time.Time
}

// CircuitBreaker tracks consecutive failures of one client.
//
//	Closed -> (failures >= threshold) -> Open -> (timeout elapsed) -> HalfOpen
//	HalfOpen -> success -> Closed
//	HalfOpen -> failure -> Open (openedAt refreshed)
type CircuitBreaker struct {
	mu                  sync.Mutex
	config              CircuitBreakerConfig
	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	now                 func() time.Time
}

// NewCircuitBreaker creates a closed breaker. now may be nil to use time.Now.
func NewCircuitBreaker(config CircuitBreakerConfig, now func() time.Time) *CircuitBreaker {
	if config.Threshold <= 0 {
		config.Threshold = DefaultCircuitBreakerConfig().Threshold
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultCircuitBreakerConfig().Timeout
	}
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
		now:    now,
	}
}

// Allow reports whether a call may proceed. Once the open timeout has elapsed the
// breaker moves to half-open and lets the next call through as a trial.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.config.Timeout {
		return false
	}
	b.state = CircuitHalfOpen
	return true
}

// RecordSuccess closes the breaker and resets the failure count
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.state = CircuitClosed
	b.openedAt = time.Time{}
}

// RecordFailure counts a failed call and reports whether this failure opened the circuit
func (b *CircuitBreaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	if b.state == CircuitHalfOpen || b.consecutiveFailures >= b.config.Threshold {
		opened := b.state != CircuitOpen
		b.state = CircuitOpen
		b.openedAt = b.now()
		return opened
	}
	return false
}

// Snapshot returns the current breaker state
func (b *CircuitBreaker) Snapshot() CircuitSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return CircuitSnapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		OpenedAt:            b.openedAt,
	}
}
