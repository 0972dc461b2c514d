package errors

import (
	stdErrors "errors"
	"sync"
	"time"
)

// BreakerState is the position of a CircuitBreaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is wrapped by the error returned while the breaker rejects calls.
var ErrCircuitOpen = stdErrors.New("circuit breaker is open")

// BreakerSettings tunes a CircuitBreaker. Zero fields take the defaults.
type BreakerSettings struct {
	// FailureRatio trips the breaker once reached over at least MinRequests calls.
	FailureRatio float64
	MinRequests  int
	// OpenTimeout is how long the breaker rejects calls before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests successful probes close the breaker again.
	HalfOpenRequests int
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.5
	}
	if s.MinRequests <= 0 {
		s.MinRequests = 10
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.HalfOpenRequests <= 0 {
		s.HalfOpenRequests = 3
	}
	return s
}

// CircuitBreaker stops calling a dependency that keeps failing. Rejected calls
// fail with an external API AppError wrapping ErrCircuitOpen.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings
	now      func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	requests int
	inFlight int
	openedAt time.Time
}

// NewCircuitBreaker constructs a closed breaker guarding the dependency name.
func NewCircuitBreaker(name string, settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{
		name:     name,
		settings: settings.withDefaults(),
		now:      time.Now,
		state:    BreakerClosed,
	}
}

// Call runs fn unless the breaker is open. Any error of fn counts as a failure.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.before(); err != nil {
		return err
	}

	callErr := fn()
	cb.after(callErr == nil)
	return callErr
}

// State returns the current position of the breaker.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.settings.OpenTimeout {
		return BreakerHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen {
		if cb.now().Sub(cb.openedAt) < cb.settings.OpenTimeout {
			return NewExternalAPIError(cb.name, ErrCircuitOpen)
		}
		cb.state = BreakerHalfOpen
		cb.reset()
	}

	if cb.state == BreakerHalfOpen {
		if cb.inFlight+cb.requests >= cb.settings.HalfOpenRequests {
			return NewExternalAPIError(cb.name, ErrCircuitOpen)
		}
		cb.inFlight++
	}

	return nil
}

func (cb *CircuitBreaker) after(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerHalfOpen {
		cb.inFlight--
		if !ok {
			cb.trip()
			return
		}
		cb.requests++
		if cb.requests >= cb.settings.HalfOpenRequests {
			cb.state = BreakerClosed
			cb.reset()
		}
		return
	}

	cb.requests++
	if !ok {
		cb.failures++
	}
	if cb.requests >= cb.settings.MinRequests &&
		float64(cb.failures)/float64(cb.requests) >= cb.settings.FailureRatio {
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = BreakerOpen
	cb.openedAt = cb.now()
	cb.reset()
}

func (cb *CircuitBreaker) reset() {
	cb.failures = 0
	cb.requests = 0
	cb.inFlight = 0
}
