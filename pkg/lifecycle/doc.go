// Package lifecycle provides the node lifecycle state machine.
//
// A node starts Idle, runs until it is closed, and never restarts:
//
//	manager := lifecycle.NewManager(logger, eventEmitter)
//
//	if err := manager.TransitionTo(lifecycle.StateRunning, "started"); err != nil {
//	    return err
//	}
//
//	// ... run workers registered with AddWorker ...
//
//	_ = manager.TransitionTo(lifecycle.StateClosing, "close requested")
//	manager.Cancel()
//	if err := manager.WaitWithTimeout(lifecycle.ShutdownTimeout); err != nil {
//	    return err
//	}
//	_ = manager.TransitionTo(lifecycle.StateClosed, "closed")
//
// # State Machine
//
// Valid state transitions:
//   - Idle -> Running, Closed, Failed
//   - Running -> Closing, Failed
//   - Closing -> Closed, Failed
//   - Failed -> Closing, Closed
//
// Closed is terminal.
package lifecycle
