package status

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type httpErr struct{ code int }

func (e httpErr) Error() string   { return fmt.Sprintf("http %d", e.code) }
func (e httpErr) StatusCode() int { return e.code }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrorNone, ErrorCode(nil))
	assert.Equal(t, ErrorGeneric, ErrorCode(errors.New("boom")))
	assert.Equal(t, ErrorTimeout, ErrorCode(fmt.Errorf("fetch: %w", context.DeadlineExceeded)))
	assert.Equal(t, ErrorCancelled, ErrorCode(fmt.Errorf("fetch: %w", context.Canceled)))
	assert.Equal(t, uint16(503), ErrorCode(fmt.Errorf("fetch: %w", httpErr{code: 503})))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(Snapshot{Phase: PhaseWaiting}))
	assert.Equal(t, 0.5, Progress(Snapshot{Phase: PhaseWaiting, Attempts: 2, MaxAttempts: 4}))
	assert.Equal(t, 1.0, Progress(Snapshot{Phase: PhaseExhausted, Attempts: 9, MaxAttempts: 4}))
	assert.Equal(t, 1.0, Progress(Snapshot{Phase: PhaseReady, Attempts: 1, MaxAttempts: 4}))
}

func TestSecondsSince_Clamps(t *testing.T) {
	start := time.Unix(1000, 0)

	assert.Equal(t, uint16(0), SecondsSince(start, start.Add(-time.Second)))
	assert.Equal(t, uint16(12), SecondsSince(start, start.Add(12500*time.Millisecond)))
	assert.Equal(t, uint16(SecondsWaitingMax), SecondsSince(start, start.Add(30*time.Hour)))
}

func TestTerminal(t *testing.T) {
	assert.False(t, Snapshot{Phase: PhaseWaiting}.Terminal())
	assert.False(t, Snapshot{Phase: PhaseUnknown}.Terminal())
	for _, p := range []uint16{PhaseReady, PhaseExhausted, PhaseCancelled, PhaseFailed} {
		assert.True(t, Snapshot{Phase: p}.Terminal(), PhaseName(p))
	}
}
