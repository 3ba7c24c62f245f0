package domain

import "time"

// DispatchState is the bookkeeping of the single-writer dispatcher.
// It is mutated only by the dispatcher and the connection gate.
type DispatchState struct {
	// WritePending is true while exactly one write is in flight
	WritePending bool

	// LastError is the most recent write failure, cleared by the next
	// dispatch or by a connection change
	LastError error

	// LastWrite is when the most recent write started; zero if none
	LastWrite time.Time

	// Debouncing is true while the quiet period after a write runs
	Debouncing bool
}

// ResetConnection clears the fields that must not leak from one
// connection into the next.
func (s *DispatchState) ResetConnection() {
	s.LastError = nil
	s.LastWrite = time.Time{}
}

// Phase is the state of the dispatcher state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDispatching
	PhaseDebouncing
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseDispatching:
		return "Dispatching"
	case PhaseDebouncing:
		return "Debouncing"
	default:
		return "Unknown"
	}
}

// Phase derives the state machine phase from the bookkeeping.
func (s DispatchState) Phase() Phase {
	switch {
	case s.WritePending:
		return PhaseDispatching
	case s.Debouncing:
		return PhaseDebouncing
	default:
		return PhaseIdle
	}
}
