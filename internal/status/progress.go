// internal/status/progress.go
package status

import (
	"context"
	"errors"
	"net"
	"time"
)

// Progress converts a snapshot into a 0..1 fraction for a progress indicator.
// Each failed attempt moves the bar forward; a ready session completes it.
// No IO. No side effects.
func Progress(s Snapshot) float64 {
	if s.Phase == PhaseReady {
		return 1
	}
	if s.MaxAttempts <= 0 {
		return 0
	}
	p := float64(s.Attempts) / float64(s.MaxAttempts)
	if p > 1 {
		p = 1
	}
	return p
}

// SecondsSince returns whole seconds elapsed since start, clamped to SecondsWaitingMax.
func SecondsSince(start, now time.Time) uint16 {
	d := now.Sub(start)
	if d <= 0 {
		return 0
	}
	secs := int64(d / time.Second)
	if secs > SecondsWaitingMax {
		return SecondsWaitingMax
	}
	return uint16(secs)
}

// ErrorCode extracts a best-effort code from an error without assuming concrete types.
// If the error does not expose a code, returns ErrorGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return ErrorNone
	}

	type coder interface{ Code() uint16 }
	type statusCoder interface{ StatusCode() int }

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		if v := sc.StatusCode(); v > 0 && v <= 65535 {
			return uint16(v)
		}
	}

	if errors.Is(err, context.Canceled) {
		return ErrorCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTimeout
	}

	return ErrorGeneric
}
