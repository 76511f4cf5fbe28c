package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
)

// ErrCircuitOpen is returned immediately while the breaker is open.
var ErrCircuitOpen = errors.New("store: circuit breaker open")

// Breaker states.
const (
	stateClosed = iota
	stateOpen
	stateHalfOpen
)

// Executor wraps store commands with bounded exponential-backoff retries
// composed with a consecutive-failure circuit breaker. It is shared by every
// component that talks to the store; state is owned by the instance, never
// package-global.
type Executor struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration

	breakAfter int
	cooldown   time.Duration

	log *logger.Logger

	mu          sync.Mutex
	state       int
	consecutive int
	openedAt    time.Time
	trialActive bool
}

// NewExecutor builds an Executor. Non-positive tuning values fall back to
// conservative defaults.
func NewExecutor(attempts int, baseDelay time.Duration, breakAfter int, cooldown time.Duration, log *logger.Logger) *Executor {
	if attempts < 1 {
		attempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if breakAfter < 1 {
		breakAfter = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Executor{
		attempts:   attempts,
		baseDelay:  baseDelay,
		maxDelay:   5 * time.Second,
		breakAfter: breakAfter,
		cooldown:   cooldown,
		log:        log,
	}
}

// State returns "closed", "open" or "half-open" for health reporting.
func (e *Executor) State() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Do runs fn under the retry and breaker policy. Context cancellation stops
// retrying immediately and does not count against the breaker.
func (e *Executor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := e.allow(); err != nil {
		return err
	}

	var err error
	delay := e.baseDelay
	for attempt := 1; attempt <= e.attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			e.recordSuccess()
			return nil
		}
		if ctx.Err() != nil {
			// Caller gave up; not a store failure.
			e.releaseTrial()
			return err
		}
		if attempt < e.attempts {
			e.log.Debug("store command failed, retrying", "op", op, "attempt", attempt, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				e.releaseTrial()
				return err
			}
			if delay *= 2; delay > e.maxDelay {
				delay = e.maxDelay
			}
		}
	}
	e.recordFailure(op, err)
	return err
}

// allow decides whether a call may proceed given the breaker state. While
// open, the call is rejected until the cooldown elapses; then exactly one
// trial request is let through half-open.
func (e *Executor) allow() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case stateClosed:
		return nil
	case stateOpen:
		if time.Since(e.openedAt) < e.cooldown {
			return ErrCircuitOpen
		}
		e.state = stateHalfOpen
		e.trialActive = true
		return nil
	default: // half-open
		if e.trialActive {
			return ErrCircuitOpen
		}
		e.trialActive = true
		return nil
	}
}

// releaseTrial gives back an inconclusive half-open trial slot. The breaker
// returns to open with a fresh cooldown so the next caller runs its own trial.
func (e *Executor) releaseTrial() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateHalfOpen || !e.trialActive {
		return
	}
	e.trialActive = false
	e.state = stateOpen
	e.openedAt = time.Now()
}

func (e *Executor) recordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateClosed {
		e.log.Info("store circuit closed after successful trial")
	}
	e.state = stateClosed
	e.consecutive = 0
	e.trialActive = false
}

func (e *Executor) recordFailure(op string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consecutive++
	e.trialActive = false
	if e.state == stateHalfOpen {
		e.state = stateOpen
		e.openedAt = time.Now()
		e.log.Warn("store circuit reopened after failed trial", "op", op, "error", err)
		return
	}
	if e.consecutive >= e.breakAfter && e.state == stateClosed {
		e.state = stateOpen
		e.openedAt = time.Now()
		e.log.Warn("store circuit opened", "op", op, "consecutive_failures", e.consecutive, "error", err)
	}
}
