// Package deliverability decides, at dispatch time, whether a scheduled
// send may actually fire. The plan built by the schedule package is advisory
// and may be hours or days old; this package holds the real-time admission
// checks that protect sender reputation: quiet hours, hourly and daily hard
// caps, and minimum inter-send spacing.
//
// Three cooperating layers:
//
//   - Gate: a pure predicate over a read-only history view. Never mutates,
//     never errors; a rejection means "retry later", not failure.
//   - SendHistoryWindow: the process-wide sliding record of recent sends,
//     bucketed by hour with 24-hour retention.
//   - AdmissionCoordinator / RedisAdmitter: atomic check-and-record for
//     concurrent dispatchers, so the check and the recording of a send
//     cannot interleave with another dispatcher's.
package deliverability
