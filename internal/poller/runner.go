// internal/poller/runner.go
package poller

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tamzrod/storeready/internal/site"
	"github.com/tamzrod/storeready/internal/status"
)

// Run drives one poll session in the calling goroutine and returns its outcome.
// The delay comes before every query, including the first.
// Queries are strictly sequential. Cancellation of ctx is observed while
// waiting and while a query is in flight; no query starts after it.
func (p *Poller) Run(ctx context.Context) Outcome {
	start := p.clock.Now()

	snap := status.Snapshot{
		SessionID:   p.sessionID,
		SiteID:      p.cfg.SiteID,
		Phase:       status.PhaseWaiting,
		MaxAttempts: p.cfg.MaxAttempts,
	}
	p.deliver(ctx, snap)

	attempts := 0
	finish := func(out Outcome, phase uint16) Outcome {
		out.Attempts = attempts
		out.Elapsed = p.clock.Now().Sub(start)

		snap.Phase = phase
		snap.Attempts = attempts
		snap.SecondsWaiting = status.SecondsSince(start, p.clock.Now())
		// Terminal status must reach sinks even when ctx is already cancelled.
		p.deliver(context.WithoutCancel(ctx), snap)
		return out
	}

	for {
		select {
		case <-ctx.Done():
			return finish(Outcome{Kind: OutcomeCancelled}, status.PhaseCancelled)
		case <-p.clock.After(p.cfg.Interval):
		}
		if ctx.Err() != nil {
			return finish(Outcome{Kind: OutcomeCancelled}, status.PhaseCancelled)
		}

		a := p.PollOnce(ctx)
		attempts++
		a.N = attempts

		if ctx.Err() != nil {
			// The interrupted query counts as an attempt; label it by the cancellation.
			snap.LastErrorCode = status.ErrorCode(ctx.Err())
			return finish(Outcome{Kind: OutcomeCancelled}, status.PhaseCancelled)
		}

		switch {
		case a.Err != nil && site.IsFatal(a.Err):
			log.Error().Err(a.Err).
				Int64("site_id", p.cfg.SiteID).
				Int("attempt", a.N).
				Msg("site query failed permanently")
			snap.LastErrorCode = status.ErrorCode(a.Err)
			return finish(Outcome{Kind: OutcomeFailed, Err: a.Err}, status.PhaseFailed)

		case a.Err != nil:
			// Transient: spend the attempt, keep going.
			log.Debug().Err(a.Err).
				Int64("site_id", p.cfg.SiteID).
				Int("attempt", a.N).
				Msg("site query failed")
			snap.LastErrorCode = status.ErrorCode(a.Err)

		case a.Ready:
			snap.LastErrorCode = status.ErrorNone
			return finish(Outcome{Kind: OutcomeReady, Site: a.Site}, status.PhaseReady)

		default:
			log.Debug().
				Int64("site_id", p.cfg.SiteID).
				Int("attempt", a.N).
				Bool("connected", a.Site.IsConnected).
				Bool("plugin_active", a.Site.IsRequiredPluginActive).
				Msg("site not ready yet")
			snap.LastErrorCode = status.ErrorNotReady
		}

		if attempts >= p.cfg.MaxAttempts {
			return finish(Outcome{Kind: OutcomeExhausted}, status.PhaseExhausted)
		}

		snap.Attempts = attempts
		snap.SecondsWaiting = status.SecondsSince(start, p.clock.Now())
		p.deliver(ctx, snap)
	}
}

// Start runs the session in its own goroutine.
// The returned channel yields the single outcome and is then closed.
func (p *Poller) Start(ctx context.Context) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		out <- p.Run(ctx)
	}()
	return out
}

func (p *Poller) deliver(ctx context.Context, s status.Snapshot) {
	if err := p.sink.Deliver(ctx, s); err != nil {
		log.Warn().Err(err).
			Str("session", s.SessionID).
			Int64("site_id", s.SiteID).
			Msg("status delivery failed")
	}
}
