// Package lifecycle provides the start/stop state machine shared by the
// station daemon and its background workers.
//
// It tracks state transitions (Stopped, Starting, Running, Stopping, Crashed),
// coordinates worker goroutines, and bounds graceful shutdown with a timeout.
// A jittered exponential [Backoff] is provided for reconnecting to external
// daemons.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, eventEmitter)
//
//	if err := manager.TransitionTo(lifecycle.StateStarting, "starting"); err != nil {
//	    return err
//	}
//	manager.Go(func() { orchestrator.Run(ctx) })
//
//	// Graceful shutdown
//	if err := manager.WaitWithTimeout(lifecycle.ShutdownTimeout); err != nil {
//	    return err
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package lifecycle
