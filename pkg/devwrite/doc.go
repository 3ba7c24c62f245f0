// Package devwrite provides an embeddable single-writer dispatcher for
// device writes.
//
// Requests are addressed by an (index, subindex) [Key]. While a write is in
// flight, or during the quiet period after it, further requests are queued;
// a newer request for a key that is already queued replaces the older one,
// so the device only ever receives the latest value. At most one write is
// outstanding at any time.
//
// # Basic Usage
//
//	node, err := devwrite.New(devwrite.DefaultConfig(),
//	    devwrite.WithConnectionSource(source),
//	    devwrite.WithStatusSink(sink),
//	    devwrite.WithErrorReporter(reporter),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = node.Submit(devwrite.RawEvent{Index: "0x2000", SubIndex: 1, Payload: 42})
//
//	_ = node.Close()
//
// # Connections
//
// The node never dials anything itself. A [ConnectionSource] publishes
// [ConnectionSnapshot] values; a snapshot with a non-empty Ref and a
// Writer is an established connection. Each new Ref starts from a clean
// slate. Use [StaticConnection] for writers that are always available.
//
// # Status and Errors
//
// The [StatusSink] receives a [DisplayState] whenever it changes. Precedence
// is Connecting, Disconnected, Error, Busy, Connected. After a write starts,
// Busy stays visible for at least Settings.BusyMinDuration.
//
// The [ErrorReporter] receives only the root cause of a failure, for example
// the device's abort message. The full cause chain goes to the [Logger].
//
// # Configuration
//
// Settings.DebounceTime is a decimal number of milliseconds, as found in
// configuration files. Invalid settings are rejected by [New] and
// [Node.Reconfigure] with an error matching [ErrInvalidConfig].
//
// # Lifecycle States
//
// A Node moves from [StateIdle] to [StateRunning] on Start and through
// [StateClosing] to [StateClosed] on Close. [StateFailed] marks a start or
// shutdown that did not complete cleanly.
package devwrite
