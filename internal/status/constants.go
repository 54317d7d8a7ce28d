// internal/status/constants.go
package status

// Session phase codes.
// Values are stable: they are exported as a metric gauge.

// PhaseUnknown represents a session that has not started.
const PhaseUnknown uint16 = 0

// PhaseWaiting represents a session between attempts or with a query in flight.
const PhaseWaiting uint16 = 1

// PhaseReady represents a session that observed a ready site.
const PhaseReady uint16 = 2

// PhaseExhausted represents a session that used up its attempts.
const PhaseExhausted uint16 = 3

// PhaseCancelled represents a session stopped by its caller.
const PhaseCancelled uint16 = 4

// PhaseFailed represents a session stopped by a fatal query error.
const PhaseFailed uint16 = 5

// ---- ERROR CODES ----

// ErrorNone means the last attempt did not fail.
const ErrorNone uint16 = 0

// ErrorGeneric is used when an error exposes no better code.
const ErrorGeneric uint16 = 1

// ErrorTimeout is used for deadline and network timeouts.
const ErrorTimeout uint16 = 2

// ErrorNotReady means the query succeeded but the site was not ready.
const ErrorNotReady uint16 = 3

// ErrorCancelled means the query was interrupted by its caller.
const ErrorCancelled uint16 = 4

// ---- LIMITS ----

// SecondsWaitingMax caps SecondsWaiting; the counter never wraps.
const SecondsWaitingMax = 65535
