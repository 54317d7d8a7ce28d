// internal/status/snapshot.go
package status

// Snapshot represents exactly what a sink is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	SessionID string
	SiteID    int64

	Phase          uint16
	Attempts       int
	MaxAttempts    int
	LastErrorCode  uint16
	SecondsWaiting uint16
}

// Terminal reports whether the snapshot describes a finished session.
func (s Snapshot) Terminal() bool {
	switch s.Phase {
	case PhaseReady, PhaseExhausted, PhaseCancelled, PhaseFailed:
		return true
	}
	return false
}

// PhaseName returns a stable lower-case label for the phase.
func PhaseName(p uint16) string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseReady:
		return "ready"
	case PhaseExhausted:
		return "exhausted"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
