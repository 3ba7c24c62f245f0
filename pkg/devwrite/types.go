package devwrite

import (
	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
	"github.com/bft-labs/devwrite/pkg/lifecycle"
	"github.com/bft-labs/devwrite/pkg/log"
)

// Re-exported domain types.
type (
	// Key addresses one writable object on the device.
	Key = domain.Key

	// RawEvent is an unvalidated write request.
	RawEvent = domain.RawEvent

	// DisplayState is the status shown to an operator.
	DisplayState = domain.DisplayState

	// RequestError describes why an input event was rejected.
	RequestError = domain.RequestError

	// WriteError wraps a failed device write.
	WriteError = domain.WriteError
)

// Display states.
const (
	DisplayDisconnected = domain.DisplayDisconnected
	DisplayConnecting   = domain.DisplayConnecting
	DisplayError        = domain.DisplayError
	DisplayBusy         = domain.DisplayBusy
	DisplayConnected    = domain.DisplayConnected
)

// Errors returned or reported by a node.
var (
	ErrInvalidRequest  = domain.ErrInvalidRequest
	ErrNotConnected    = domain.ErrNotConnected
	ErrWriteFailure    = domain.ErrWriteFailure
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrClosed          = domain.ErrClosed
	ErrShutdownTimeout = domain.ErrShutdownTimeout
)

// RootCause returns the innermost error of a wrapped chain.
func RootCause(err error) error {
	return domain.RootCause(err)
}

// Collaborator interfaces.
type (
	// DeviceWriter writes one addressed payload to the device.
	DeviceWriter = ports.DeviceWriter

	// DeviceWriterFunc adapts a function to DeviceWriter.
	DeviceWriterFunc = ports.DeviceWriterFunc

	// ConnectionSnapshot is the state published by a connection manager.
	ConnectionSnapshot = ports.ConnectionSnapshot

	// ConnectionSource publishes connection snapshots.
	ConnectionSource = ports.ConnectionSource

	// StatusSink receives display state updates.
	StatusSink = ports.StatusSink

	// StatusSinkFunc adapts a function to StatusSink.
	StatusSinkFunc = ports.StatusSinkFunc

	// ErrorReporter is the user-facing error surface.
	ErrorReporter = ports.ErrorReporter

	// ErrorReporterFunc adapts a function to ErrorReporter.
	ErrorReporterFunc = ports.ErrorReporterFunc

	// Logger is the interface for structured logging.
	Logger = log.Logger

	// LogField represents a structured log field.
	LogField = log.Field
)

// State is the lifecycle state of a node.
type State = lifecycle.State

// Lifecycle states.
const (
	StateIdle    = lifecycle.StateIdle
	StateRunning = lifecycle.StateRunning
	StateClosing = lifecycle.StateClosing
	StateClosed  = lifecycle.StateClosed
	StateFailed  = lifecycle.StateFailed
)
