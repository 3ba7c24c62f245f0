package app

import (
	"time"

	"github.com/bft-labs/devwrite/internal/domain"
)

// SettleMargin is added to the re-evaluation delay so the timer fires after
// the minimum busy duration has fully elapsed.
const SettleMargin = 10 * time.Millisecond

// ProjectionInput is everything the display state depends on.
type ProjectionInput struct {
	Connecting      bool
	Connected       bool
	LastError       error
	WritePending    bool
	LastWrite       time.Time
	BusyMinDuration time.Duration
}

// Projection is the display state plus, when the state will change with the
// passage of time alone, how long until it should be recomputed.
type Projection struct {
	State   domain.DisplayState
	Recheck time.Duration
}

// Project maps the inputs to a display state. First match wins:
// connecting, no connection, error, pending write, recent write, connected.
func Project(in ProjectionInput, now time.Time) Projection {
	switch {
	case in.Connecting:
		return Projection{State: domain.DisplayConnecting}
	case !in.Connected:
		return Projection{State: domain.DisplayDisconnected}
	case in.LastError != nil:
		return Projection{State: domain.DisplayError}
	case in.WritePending:
		return Projection{State: domain.DisplayBusy}
	}

	if !in.LastWrite.IsZero() {
		elapsed := now.Sub(in.LastWrite)
		if elapsed < in.BusyMinDuration {
			return Projection{
				State:   domain.DisplayBusy,
				Recheck: in.BusyMinDuration - elapsed + SettleMargin,
			}
		}
	}
	return Projection{State: domain.DisplayConnected}
}
