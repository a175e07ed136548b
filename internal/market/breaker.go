package market

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without trying.
var ErrCircuitOpen = errors.New("market: circuit breaker open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // Normal operation — requests pass through
	StateOpen     State = 1 // Circuit tripped — requests rejected immediately
	StateHalfOpen State = 2 // Testing — one request allowed through to probe
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker implements a simple circuit breaker over venue data calls.
// It counts exhausted calls (a data read that degraded after its full retry
// budget), not individual attempts — the retry policy below stays intact.
// After maxFailures consecutive exhausted calls, the breaker opens and
// short-circuits reads to their degraded defaults for resetTimeout. After
// the timeout, it enters half-open state and allows one probe call through.
// If the probe succeeds, the breaker closes; if it fails, it reopens.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time

	// OnStateChange is called on state transitions (optional).
	OnStateChange func(from, to State)
}

// NewBreaker creates a circuit breaker.
// maxFailures: consecutive exhausted calls before opening (e.g., 5)
// resetTimeout: time to wait before half-open probe (e.g., 30s)
func NewBreaker(maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen if the breaker is open and the timeout hasn't elapsed.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()

	switch b.state {
	case StateOpen:
		// Check if reset timeout has elapsed → transition to half-open
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.transition(StateHalfOpen)
		} else {
			b.mu.Unlock()
			return ErrCircuitOpen
		}

	case StateHalfOpen:
		// Allow the probe call through (only one at a time via mutex)
	}

	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()

		if b.state == StateHalfOpen {
			// Probe failed — reopen
			b.transition(StateOpen)
		} else if b.failures >= b.maxFailures {
			// Too many exhausted calls — trip the breaker
			b.transition(StateOpen)
		}
		return err
	}

	// Success — reset
	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
	return nil
}

// CurrentState returns the current circuit breaker state.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.OnStateChange != nil && from != to {
		b.OnStateChange(from, to)
	}
}
