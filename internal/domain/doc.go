// Package domain contains the value types of the station connection manager.
//
// Nothing here performs I/O. The types describe what the radio reports
// ([LinkStateSnapshot]), what the manager submits ([AttemptRecord]), what
// the driver notifies asynchronously ([Notification]), how an attempt ended
// ([Outcome]), and which remediation was applied ([RecoveryAction]).
//
// # Entities
//
//   - [Credentials]: the single configured network target
//   - [AttemptRecord]: parameters of one connect submission
//   - [LinkStateSnapshot]: one read of the driver status
//   - [Stats]: counters persisted across restarts
package domain
