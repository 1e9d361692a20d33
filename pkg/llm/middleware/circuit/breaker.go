// Package circuit stops calling a model provider that keeps failing and probes it again after a cool-off.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"solace/pkg/llm/llmerrors"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config sets the trip and recovery thresholds.
type Config struct {
	FailureThreshold int           // consecutive provider failures that open the circuit
	SuccessThreshold int           // successful probes needed to close it again
	Timeout          time.Duration // cool-off before the first probe
}

// Error rejects a call while the circuit is open. It unwraps to a service-unavailable model error,
// so the controller classifies it like any other provider outage.
type Error struct {
	State      State
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("model provider unavailable: circuit %s, next probe in %s", e.State, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("model provider unavailable: circuit %s", e.State)
}

func (e *Error) Unwrap() error {
	return llmerrors.NewError(llmerrors.ErrorTypeServiceUnavailable, "model provider circuit open")
}

// Breaker gates calls to one provider.
type Breaker interface {
	// Allow returns an *Error when the call must not be made.
	Allow() error
	// Record feeds back the outcome of an allowed call.
	Record(err error)
	State() State
}

type breaker struct {
	openedAt  time.Time
	now       func() time.Time
	cfg       Config
	mu        sync.Mutex
	state     State
	failures  int
	successes int
}

// New returns a closed breaker.
func New(cfg Config) Breaker {
	return newWithClock(cfg, time.Now)
}

func newWithClock(cfg Config, now func() time.Time) *breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	return &breaker{cfg: cfg, now: now}
}

func (b *breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if wait := b.cfg.Timeout - b.now().Sub(b.openedAt); wait > 0 {
		return &Error{State: Open, RetryAfter: wait}
	}
	b.state = HalfOpen
	b.successes = 0
	return nil
}

// countsAsFailure reports whether err says something about provider health.
// Caller mistakes (bad prompt, bad key) and caller cancellation do not trip the circuit.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch llmerrors.Classify(err).Type {
	case llmerrors.ErrorTypeAuth, llmerrors.ErrorTypeBadPrompt:
		return false
	default:
		return true
	}
}

func (b *breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !countsAsFailure(err) {
		b.failures = 0
		if b.state == HalfOpen {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.state = Closed
			}
		}
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = Open
		b.openedAt = b.now()
		b.successes = 0
	}
}

func (b *breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
