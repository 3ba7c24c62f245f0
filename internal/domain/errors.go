package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the devwrite domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInvalidRequest is returned when an input event has a malformed
	// address or no payload. Such events are never queued.
	ErrInvalidRequest = errors.New("devwrite: invalid request")

	// ErrNotConnected is reported when a request arrives while no write
	// capability is available.
	ErrNotConnected = errors.New("devwrite: not connected")

	// ErrWriteFailure matches every error produced by a failed device write.
	ErrWriteFailure = errors.New("devwrite: write failed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("devwrite: invalid configuration")

	// ErrAlreadyRunning is returned when Start() is called on a running node.
	ErrAlreadyRunning = errors.New("devwrite: already running")

	// ErrNotRunning is returned when an operation requires a running node.
	ErrNotRunning = errors.New("devwrite: not running")

	// ErrClosed is returned by operations on a closed node.
	ErrClosed = errors.New("devwrite: closed")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("devwrite: shutdown timeout")
)

// RequestError describes why an input event was rejected.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// Is reports RequestError as ErrInvalidRequest.
func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// WriteError wraps the error returned by the device for one write.
type WriteError struct {
	Key Key
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Key, e.Err)
}

// Unwrap returns the device error.
func (e *WriteError) Unwrap() error { return e.Err }

// Is reports WriteError as ErrWriteFailure.
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailure
}

// RootCause follows the Unwrap chain of err to its innermost error.
// Errors that wrap several causes (errors.Join) end the walk.
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}
