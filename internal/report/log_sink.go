// internal/report/log_sink.go
package report

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tamzrod/storeready/internal/status"
)

// LogSink writes status changes to a zerolog logger.
// Only changed snapshots are logged; the seconds counter alone is not a change.
type LogSink struct {
	logger zerolog.Logger

	mu      sync.Mutex
	hasLast bool
	last    status.Snapshot
}

// NewLogSink returns a sink that logs through logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Deliver(_ context.Context, s status.Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hasLast && !changed(l.last, s) {
		return nil
	}
	l.hasLast = true
	l.last = s

	var ev *zerolog.Event
	switch s.Phase {
	case status.PhaseReady:
		ev = l.logger.Info()
	case status.PhaseExhausted, status.PhaseFailed:
		ev = l.logger.Warn()
	default:
		ev = l.logger.Debug()
	}

	ev.Str("session", s.SessionID).
		Int64("site_id", s.SiteID).
		Str("phase", status.PhaseName(s.Phase)).
		Int("attempt", s.Attempts).
		Int("max_attempts", s.MaxAttempts).
		Uint16("last_error_code", s.LastErrorCode).
		Uint16("seconds_waiting", s.SecondsWaiting).
		Float64("progress", status.Progress(s)).
		Msg("store readiness status")
	return nil
}

func changed(a, b status.Snapshot) bool {
	return a.SessionID != b.SessionID ||
		a.Phase != b.Phase ||
		a.Attempts != b.Attempts ||
		a.LastErrorCode != b.LastErrorCode
}
