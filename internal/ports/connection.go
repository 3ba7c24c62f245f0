package ports

// ConnectionSnapshot is the latest state published by the connection manager.
// Writer is only meaningful when Ref is set and Connecting is false.
type ConnectionSnapshot struct {
	// Connecting is true while a connection attempt is in progress
	Connecting bool

	// Ref identifies the current connection; empty when there is none
	Ref string

	// Writer is the write capability of the current connection, or nil
	Writer DeviceWriter
}

// Usable reports whether the snapshot carries a write capability that
// satisfies the snapshot invariant.
func (s ConnectionSnapshot) Usable() bool {
	return s.Writer != nil && s.Ref != "" && !s.Connecting
}

// ConnectionSource publishes connection snapshots.
type ConnectionSource interface {
	// Subscribe registers fn for every snapshot change. The current snapshot
	// is delivered right away. The returned function unsubscribes.
	Subscribe(fn func(ConnectionSnapshot)) (unsubscribe func())
}
