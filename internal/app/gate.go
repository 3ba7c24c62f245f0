package app

import "github.com/bft-labs/devwrite/internal/ports"

// OnConnection applies a snapshot from the connection manager.
//
// A new connection reference starts from a clean slate: the last error and
// the last write time of the previous connection are forgotten.
func (d *Dispatcher) OnConnection(snap ports.ConnectionSnapshot) {
	if d.closed {
		d.logger.Debug("connection notification after close ignored",
			ports.String("conn", snap.Ref),
		)
		return
	}

	if snap.Writer != nil && !snap.Usable() {
		d.logger.Warn("ignoring write capability without an established connection",
			ports.String("conn", snap.Ref),
			ports.Bool("connecting", snap.Connecting),
		)
		snap.Writer = nil
	}

	if snap.Ref != d.conn.Ref {
		d.state.ResetConnection()
		d.logger.Info("connection changed",
			ports.String("from", d.conn.Ref),
			ports.String("to", snap.Ref),
			ports.Bool("write_pending", d.state.WritePending),
		)
	}

	d.conn = snap
	if snap.Usable() {
		d.notConnectedReported = false
	}

	d.tryDispatch()
	d.refresh()
}
