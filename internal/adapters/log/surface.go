// Package log provides a user-facing surface that prints status changes and
// reported errors through a logger. The CLI uses it on the console.
package log

import (
	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
)

// Surface implements ports.StatusSink and ports.ErrorReporter by logging.
type Surface struct {
	logger ports.Logger
}

// NewSurface creates a surface that writes to logger.
func NewSurface(logger ports.Logger) *Surface {
	return &Surface{logger: logger}
}

// SetStatus logs the new display state.
func (s *Surface) SetStatus(state domain.DisplayState) {
	s.logger.Info("status", ports.String("state", state.String()))
}

// ReportError logs the concise user-facing message. The full chain is
// already in the diagnostic log.
func (s *Surface) ReportError(err error) {
	if err == nil {
		return
	}
	s.logger.Error(err.Error())
}

var (
	_ ports.StatusSink    = (*Surface)(nil)
	_ ports.ErrorReporter = (*Surface)(nil)
)
