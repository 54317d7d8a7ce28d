// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/storeready/internal/site"
)

// Attempt is the raw result of one site query.
type Attempt struct {
	N     int // 1-based
	Site  site.Snapshot
	Ready bool
	Err   error // non-nil means the query failed
}

// OutcomeKind is the terminal state of a poll session.
type OutcomeKind int

const (
	OutcomeReady OutcomeKind = iota + 1
	OutcomeExhausted
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReady:
		return "ready"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is produced exactly once per poll session.
type Outcome struct {
	Kind     OutcomeKind
	Site     site.Snapshot // set only for OutcomeReady
	Attempts int           // queries issued, including one interrupted by cancellation
	Elapsed  time.Duration
	Err      error // set only for OutcomeFailed
}

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
