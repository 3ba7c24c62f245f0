package ports

import "github.com/bft-labs/devwrite/internal/domain"

// StatusSink receives display state updates.
type StatusSink interface {
	SetStatus(state domain.DisplayState)
}

// StatusSinkFunc adapts a function to StatusSink.
type StatusSinkFunc func(state domain.DisplayState)

// SetStatus calls f.
func (f StatusSinkFunc) SetStatus(state domain.DisplayState) { f(state) }

// ErrorReporter is the user-facing error surface.
// It receives one concise error per failure episode.
type ErrorReporter interface {
	ReportError(err error)
}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(err error)

// ReportError calls f.
func (f ErrorReporterFunc) ReportError(err error) { f(err) }
