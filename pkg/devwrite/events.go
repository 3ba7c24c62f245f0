package devwrite

import "time"

// StateChangeEvent is emitted on lifecycle transitions.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// WriteSuccessEvent is emitted after a successful device write.
type WriteSuccessEvent struct {
	Key      Key
	Duration time.Duration
}

// WriteErrorEvent is emitted after a failed device write.
type WriteErrorEvent struct {
	Key Key

	// Error is the full failure, a *WriteError.
	Error error

	// RootCause is the innermost cause, as shown to the user.
	RootCause error

	Duration time.Duration
}

// EventHandler receives node events. Write events are called on the
// node's loop; implementations should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnWriteSuccess(event WriteSuccessEvent)
	OnWriteError(event WriteErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// handle only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnWriteSuccess(WriteSuccessEvent) {}
func (BaseEventHandler) OnWriteError(WriteErrorEvent)     {}

var _ EventHandler = BaseEventHandler{}
