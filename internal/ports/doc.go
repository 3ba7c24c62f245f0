// Package ports defines the interfaces (ports) that connect the dispatcher
// core to infrastructure adapters and to the host that embeds it.
//
// # Port Interfaces
//
//   - [DeviceWriter]: the write capability handed out by a live connection
//   - [ConnectionSource]: publishes connection snapshots on every change
//   - [StatusSink]: receives projected display states
//   - [ErrorReporter]: the user-facing error surface (root causes only)
//   - [Scheduler]: the single-threaded execution context with timers
//   - [Logger]: structured diagnostic logging
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them for TCP/CBOR, Modbus, files
// and zerolog.
package ports
