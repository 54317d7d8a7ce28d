// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/storeready/internal/report"
	"github.com/tamzrod/storeready/internal/site"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	SiteID      int64
	Interval    time.Duration
	MaxAttempts int
}

// Poller waits for one site to become ready.
// Fixed interval, bounded attempts, one query in flight.
type Poller struct {
	cfg       Config
	querier   site.Querier
	sink      report.Sink
	clock     Clock
	sessionID string
}

// Option customizes a Poller.
type Option func(*Poller)

// WithSink delivers a status snapshot to s after every attempt and on termination.
func WithSink(s report.Sink) Option {
	return func(p *Poller) { p.sink = s }
}

// WithClock replaces the wall clock and delay timer.
func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithSessionID labels the session in status snapshots.
func WithSessionID(id string) Option {
	return func(p *Poller) { p.sessionID = id }
}

// New creates a poller with immutable config.
// Invalid config is a programmer error and is reported immediately.
func New(cfg Config, q site.Querier, opts ...Option) (*Poller, error) {
	if cfg.SiteID <= 0 {
		return nil, errors.New("poller: site id must be > 0")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("poller: max attempts must be > 0")
	}
	if q == nil {
		return nil, errors.New("poller: querier required")
	}

	p := &Poller{
		cfg:     cfg,
		querier: q,
		sink:    report.Discard,
		clock:   realClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sessionID == "" {
		p.sessionID = uuid.NewString()
	}
	return p, nil
}

// SessionID returns the label used in status snapshots.
func (p *Poller) SessionID() string { return p.sessionID }

// PollOnce performs exactly one site query and evaluates readiness.
// No delay, no retries.
func (p *Poller) PollOnce(ctx context.Context) Attempt {
	var a Attempt

	s, err := p.querier.FetchSite(ctx, p.cfg.SiteID)
	if err != nil {
		a.Err = err
		return a
	}

	a.Site = s
	a.Ready = site.IsReady(s)
	return a
}
