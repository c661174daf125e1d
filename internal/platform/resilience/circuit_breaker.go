package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker sheds calls to a dependency after a run of failures.
// Once the open wait elapses it admits a bounded number of probes; all
// probes succeeding closes the breaker, any probe failing reopens it.
type CircuitBreaker struct {
	mu sync.Mutex

	failLimit  int
	openFor    time.Duration
	probeLimit int

	state      CircuitState
	failStreak int
	reopenAt   time.Time
	probes     int
	probeWins  int
	clock      func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	if halfOpenMaxReq < 1 {
		halfOpenMaxReq = 1
	}

	return &CircuitBreaker{
		failLimit:  failureThreshold,
		openFor:    openTimeout,
		probeLimit: halfOpenMaxReq,
		state:      CircuitStateClosed,
		clock:      time.Now,
	}
}

// Allow reports whether a call may proceed right now. In the half-open
// window each admitted call counts as a probe until its outcome is
// recorded.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && !b.clock().Before(b.reopenAt) {
		b.state = CircuitStateHalfOpen
		b.probes = 0
		b.probeWins = 0
	}

	switch b.state {
	case CircuitStateOpen:
		return ErrCircuitOpen
	case CircuitStateHalfOpen:
		if b.probes >= b.probeLimit {
			return ErrCircuitOpen
		}
		b.probes++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failStreak = 0
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.probeWins++
		if b.probeWins >= b.probeLimit && b.probes == 0 {
			b.state = CircuitStateClosed
			b.failStreak = 0
			b.probeWins = 0
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failStreak++
		if b.failStreak >= b.failLimit {
			b.trip()
		}
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.trip()
	case CircuitStateOpen:
		// Failures reported while already open push the probe window out.
		b.reopenAt = b.clock().Add(b.openFor)
	}
}

func (b *CircuitBreaker) trip() {
	b.state = CircuitStateOpen
	b.reopenAt = b.clock().Add(b.openFor)
	b.probes = 0
	b.probeWins = 0
}

// State reports the effective state, surfacing half_open once an open
// breaker's wait has elapsed even before any call probes it.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && !b.clock().Before(b.reopenAt) {
		return CircuitStateHalfOpen
	}

	return b.state
}
