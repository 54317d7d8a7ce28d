// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tamzrod/storeready/internal/pending"
	"github.com/tamzrod/storeready/internal/poller"
	"github.com/tamzrod/storeready/internal/report"
	"github.com/tamzrod/storeready/internal/site"
)

// PendingStore persists the pending-switch record.
type PendingStore interface {
	Save(ctx context.Context, r pending.Record) error
	Load(ctx context.Context) (pending.Record, bool, error)
	Clear(ctx context.Context) error
}

// Result is what the caller acts on after a session ends.
type Result struct {
	Outcome poller.Outcome

	// InSync is meaningful only for a ready outcome. A ready site whose name or
	// store flags have not caught up is still accepted.
	InSync bool
}

// Coordinator owns poll sessions for newly created stores.
// At most one session runs at a time: starting a session cancels the previous one
// and waits for it to return.
type Coordinator struct {
	querier  site.Querier
	store    PendingStore
	settings poller.Settings
	sink     report.Sink
	pollOpts []poller.Option

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   *pending.Record
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithSink delivers every session's status to s.
func WithSink(s report.Sink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// WithPollerOptions passes extra options to every poller.
func WithPollerOptions(opts ...poller.Option) Option {
	return func(c *Coordinator) { c.pollOpts = append(c.pollOpts, opts...) }
}

// New builds a coordinator.
func New(q site.Querier, store PendingStore, settings poller.Settings, opts ...Option) (*Coordinator, error) {
	if q == nil {
		return nil, errors.New("coordinator: querier required")
	}
	if store == nil {
		return nil, errors.New("coordinator: pending store required")
	}
	if settings.Interval <= 0 || settings.MaxAttempts <= 0 {
		return nil, errors.Errorf("coordinator: invalid poll settings %+v", settings)
	}

	c := &Coordinator{
		querier:  q,
		store:    store,
		settings: settings,
		sink:     report.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start persists a pending switch for siteID and waits for the site to become ready.
// Any outstanding session is cancelled first.
func (c *Coordinator) Start(ctx context.Context, siteID int64, expectedName string) (Result, error) {
	rec := pending.Record{SiteID: siteID, ExpectedName: expectedName, CreatedAt: time.Now()}
	return c.run(ctx, rec, true)
}

// Retry runs the last session again, as a manual "try again" after exhaustion.
func (c *Coordinator) Retry(ctx context.Context) (Result, error) {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()

	if last == nil {
		return Result{}, errors.New("coordinator: nothing to retry")
	}
	log.Info().Int64("site_id", last.SiteID).Msg("retrying store readiness wait")
	return c.run(ctx, *last, false)
}

// Resume rebuilds a session from the persisted pending record.
// ok is false when no switch is pending.
func (c *Coordinator) Resume(ctx context.Context) (res Result, ok bool, err error) {
	rec, ok, err := c.store.Load(ctx)
	if err != nil {
		return Result{}, false, errors.Wrap(err, "coordinator: resume")
	}
	if !ok {
		return Result{}, false, nil
	}

	log.Info().
		Int64("site_id", rec.SiteID).
		Str("expected_name", rec.ExpectedName).
		Time("pending_since", rec.CreatedAt).
		Msg("resuming pending store switch")

	res, err = c.run(ctx, rec, false)
	return res, true, err
}

// Cancel stops the outstanding session, if any. It does not wait.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Coordinator) run(ctx context.Context, rec pending.Record, persist bool) (Result, error) {
	if rec.SiteID <= 0 {
		return Result{}, errors.Errorf("coordinator: invalid site id %d", rec.SiteID)
	}

	sessCtx, err := c.begin(ctx, rec)
	if err != nil {
		// Cancelled while waiting for the previous session to stop.
		log.Info().Int64("site_id", rec.SiteID).Msg("store readiness wait cancelled before start")
		return Result{Outcome: poller.Outcome{Kind: poller.OutcomeCancelled}}, nil
	}
	defer c.end()

	if sessCtx.Err() != nil {
		log.Info().Int64("site_id", rec.SiteID).Msg("store readiness wait cancelled before start")
		return Result{Outcome: poller.Outcome{Kind: poller.OutcomeCancelled}}, nil
	}

	if persist {
		// The write is local and short; a cancellation racing it is reported by Run.
		if err := c.store.Save(context.WithoutCancel(sessCtx), rec); err != nil {
			return Result{}, errors.Wrap(err, "coordinator: persist pending switch")
		}
	}

	opts := append([]poller.Option{poller.WithSink(c.sink)}, c.pollOpts...)
	p, err := poller.Build(c.settings, rec.SiteID, c.querier, opts...)
	if err != nil {
		return Result{}, err
	}

	log.Info().
		Int64("site_id", rec.SiteID).
		Str("session", p.SessionID()).
		Dur("interval", c.settings.Interval).
		Int("max_attempts", c.settings.MaxAttempts).
		Msg("waiting for store to become ready")

	out := p.Run(sessCtx)
	res := Result{Outcome: out}

	switch out.Kind {
	case poller.OutcomeReady:
		res.InSync = site.InSync(out.Site, rec.ExpectedName)
		if !res.InSync {
			log.Warn().
				Int64("site_id", rec.SiteID).
				Str("expected_name", rec.ExpectedName).
				Str("name", out.Site.Name).
				Bool("woocommerce_active", out.Site.IsWooCommerceActive).
				Bool("wpcom_store", out.Site.IsWordPressComStore).
				Msg("site available but properties are not yet in sync")
		}
		if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
			return res, errors.Wrap(err, "coordinator: clear pending switch")
		}
		log.Info().
			Int64("site_id", rec.SiteID).
			Int("attempts", out.Attempts).
			Dur("waited", out.Elapsed).
			Msg("store is ready")

	case poller.OutcomeExhausted:
		// Record stays: a later Retry or Resume picks it up.
		log.Warn().
			Int64("site_id", rec.SiteID).
			Int("attempts", out.Attempts).
			Dur("waited", out.Elapsed).
			Msg("store did not become ready in time")

	case poller.OutcomeFailed:
		if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("clear pending switch after fatal error failed")
		}
		return res, errors.Wrapf(out.Err, "coordinator: site %d", rec.SiteID)

	case poller.OutcomeCancelled:
		log.Info().Int64("site_id", rec.SiteID).Msg("store readiness wait cancelled")
	}

	return res, nil
}

// begin cancels any outstanding session, waits for it, and registers a new one.
// It fails only when ctx ends while waiting.
func (c *Coordinator) begin(ctx context.Context, rec pending.Record) (context.Context, error) {
	for {
		c.mu.Lock()
		if c.done == nil {
			sessCtx, cancel := context.WithCancel(ctx)
			c.cancel = cancel
			c.done = make(chan struct{})
			r := rec
			c.last = &r
			c.mu.Unlock()
			return sessCtx, nil
		}
		prevCancel, prevDone := c.cancel, c.done
		c.mu.Unlock()

		log.Debug().Int64("site_id", rec.SiteID).Msg("cancelling outstanding session")
		prevCancel()
		select {
		case <-prevDone:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Coordinator) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	close(c.done)
	c.cancel = nil
	c.done = nil
}
