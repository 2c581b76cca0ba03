package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// State represents the current phase of request processing
type State string

const (
	StateReceived        State = "received"
	StateValidated       State = "validated"
	StateSearchStarted   State = "search_started"
	StateSearchCompleted State = "search_completed"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

var validTransitions = map[State][]State{
	StateReceived:        {StateValidated, StateFailed},
	StateValidated:       {StateSearchStarted, StateFailed},
	StateSearchStarted:   {StateSearchCompleted, StateFailed},
	StateSearchCompleted: {StateCompleted, StateFailed},
	StateCompleted:       {},
	StateFailed:          {},
}

// StateTransition records a state change
type StateTransition struct {
	From      State
	To        State
	Timestamp time.Time
	Metadata  map[string]any
}

// StateTracker tracks request lifecycle state
type StateTracker interface {
	Current() State
	Transition(to State, metadata map[string]any) error
	History() []StateTransition
	Duration(state State) time.Duration
}

// DefaultStateTracker is an in-memory StateTracker
type DefaultStateTracker struct {
	mu      sync.RWMutex
	current State
	history []StateTransition
	entered map[State]time.Time
}

// NewStateTracker creates a tracker starting at StateReceived
func NewStateTracker() *DefaultStateTracker {
	return &DefaultStateTracker{
		current: StateReceived,
		entered: map[State]time.Time{StateReceived: time.Now()},
	}
}

func (t *DefaultStateTracker) Current() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Transition moves to a new state if the transition is allowed
func (t *DefaultStateTracker) Transition(to State, metadata map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !canTransition(t.current, to) {
		return fmt.Errorf("invalid state transition from %s to %s", t.current, to)
	}

	now := time.Now()
	t.history = append(t.history, StateTransition{
		From:      t.current,
		To:        to,
		Timestamp: now,
		Metadata:  metadata,
	})
	t.current = to
	t.entered[to] = now
	return nil
}

func (t *DefaultStateTracker) History() []StateTransition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]StateTransition, len(t.history))
	copy(out, t.history)
	return out
}

// Duration returns how long the request spent in a state. The current state
// is measured up to now.
func (t *DefaultStateTracker) Duration(state State) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	started, ok := t.entered[state]
	if !ok {
		return 0
	}
	for _, tr := range t.history {
		if tr.From == state {
			return tr.Timestamp.Sub(started)
		}
	}
	if t.current == state {
		return time.Since(started)
	}
	return 0
}

func canTransition(from, to State) bool {
	for _, valid := range validTransitions[from] {
		if valid == to {
			return true
		}
	}
	return false
}
