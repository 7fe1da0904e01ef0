// Package app contains the connection-lifecycle core.
//
// The [Orchestrator] owns the retry loop and submits one attempt at a time.
// An [EventObserver] folds driver notifications arriving on the [Bus] into
// the shared [ConnectionContext]. A [TimeoutGuard] bounds every attempt with
// an early-warning and a hard-abort deadline, and the [RecoveryEscalator]
// chooses between an interface bounce and a radio power cycle after each
// failure.
package app
