// internal/report/sink.go
package report

import (
	"context"
	"errors"

	"github.com/tamzrod/storeready/internal/status"
)

// Sink is the delivery-only contract for session status.
// It receives a snapshot and delivers it verbatim.
// No logic, no state that feeds back into the session.
type Sink interface {
	Deliver(ctx context.Context, s status.Snapshot) error
}

// Multi fans a snapshot out to every sink.
// All sinks are attempted; their errors are joined.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, s status.Snapshot) error {
	var errs []error
	for _, sk := range m {
		if sk == nil {
			continue
		}
		if err := sk.Deliver(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every snapshot.
var Discard Sink = discard{}

type discard struct{}

func (discard) Deliver(context.Context, status.Snapshot) error { return nil }
