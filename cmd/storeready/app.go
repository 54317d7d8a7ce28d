// cmd/storeready/app.go
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/storeready/internal/config"
	"github.com/tamzrod/storeready/internal/coordinator"
	"github.com/tamzrod/storeready/internal/env"
	"github.com/tamzrod/storeready/internal/pending"
	"github.com/tamzrod/storeready/internal/poller"
	"github.com/tamzrod/storeready/internal/report"
	"github.com/tamzrod/storeready/internal/site/rest"
)

// Exit codes by outcome.
const (
	exitReady     = 0
	exitFailure   = 1
	exitExhausted = 2
	exitCancelled = 3
)

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// loadConfig runs Load -> Validate -> Normalize and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.StoreReady.Log.Level = flagLogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	config.Normalize(cfg)

	lvl, err := zerolog.ParseLevel(cfg.StoreReady.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	zerolog.SetGlobalLevel(lvl)
	if p := env.LoadedPath(); p != "" {
		log.Debug().Str("dotenv", p).Msg("environment loaded")
	}
	return cfg, nil
}

// app bundles everything a command needs. Close releases it.
type app struct {
	cfg     *config.Config
	querier *rest.Client
	store   *pending.Store
	metrics *report.MetricsSink
	sink    report.Sink

	mu          sync.Mutex
	metricsAddr net.Addr
}

func newApp(cfg *config.Config) (*app, error) {
	api := cfg.StoreReady.SiteAPI

	token := env.Token(api.TokenEnv)
	if token == "" {
		log.Warn().Str("env", api.TokenEnv).Msg("no API token set, requests are unauthenticated")
	}

	q, err := rest.New(rest.Config{
		BaseURL:        api.BaseURL,
		Token:          token,
		Timeout:        time.Duration(api.TimeoutMs) * time.Millisecond,
		RequiredPlugin: *api.RequiredPlugin,
	})
	if err != nil {
		return nil, err
	}

	store, err := pending.Open(cfg.StoreReady.State.DBPath)
	if err != nil {
		return nil, err
	}

	metrics := report.NewMetricsSink()
	return &app{
		cfg:     cfg,
		querier: q,
		store:   store,
		metrics: metrics,
		sink:    report.Multi{report.NewLogSink(log.Logger), metrics},
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) coordinator() (*coordinator.Coordinator, error) {
	return coordinator.New(
		a.querier,
		a.store,
		poller.SettingsFrom(a.cfg.StoreReady.Poll),
		coordinator.WithSink(a.sink),
	)
}

// runSession runs fn under a signal-aware context next to the optional
// metrics listener. The listener stops when fn returns.
func (a *app) runSession(ctx context.Context, fn func(ctx context.Context) (coordinator.Result, error)) (coordinator.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	sessionDone := make(chan struct{})

	var (
		res    coordinator.Result
		runErr error
	)
	g.Go(func() error {
		defer close(sessionDone)
		res, runErr = fn(gctx)
		return nil
	})

	if addr := a.cfg.StoreReady.Metrics.Listen; addr != "" {
		srv := &http.Server{Handler: a.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.Wrap(err, "metrics listener")
			}
			a.setMetricsAddr(ln.Addr())
			log.Info().Str("addr", ln.Addr().String()).Msg("metrics listener started")
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics listener")
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-sessionDone:
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, runErr
}

func (a *app) setMetricsAddr(addr net.Addr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metricsAddr = addr
}

// MetricsAddr returns the bound metrics address, or nil before the listener is up.
func (a *app) MetricsAddr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metricsAddr
}

// outcomeError maps a session result to the process exit status.
func outcomeError(siteID int64, res coordinator.Result) error {
	o := res.Outcome
	switch o.Kind {
	case poller.OutcomeReady:
		return nil
	case poller.OutcomeExhausted:
		return &exitError{
			code: exitExhausted,
			msg:  fmt.Sprintf("site %d not ready after %d attempts; run `storeready resume` to try again", siteID, o.Attempts),
		}
	case poller.OutcomeCancelled:
		return &exitError{code: exitCancelled, msg: "cancelled"}
	default:
		return &exitError{code: exitFailure, msg: fmt.Sprintf("unexpected outcome %s", o.Kind)}
	}
}

func printResult(res coordinator.Result) {
	o := res.Outcome
	fmt.Printf("outcome=%s attempts=%d waited=%s", o.Kind, o.Attempts, o.Elapsed.Round(time.Second))
	if o.Kind == poller.OutcomeReady {
		fmt.Printf(" site_id=%d name=%q url=%s in_sync=%t", o.Site.SiteID, o.Site.Name, o.Site.URL, res.InSync)
	}
	fmt.Println()
}
