// internal/report/metrics_sink.go
package report

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/storeready/internal/status"
)

const namespace = "storeready"

// MetricsSink exports session status as Prometheus collectors.
// Each sink owns its registry so tests and processes never collide.
type MetricsSink struct {
	Registry *prometheus.Registry

	attempts       *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	phase          *prometheus.GaugeVec
	secondsWaiting *prometheus.GaugeVec

	mu           sync.Mutex
	lastAttempts map[string]int
}

// NewMetricsSink builds and registers the collectors.
func NewMetricsSink() *MetricsSink {
	m := &MetricsSink{
		Registry: prometheus.NewRegistry(),

		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "attempts_total",
				Help:      "Total number of site readiness queries issued.",
			},
			[]string{"error_code"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "sessions_total",
				Help:      "Total number of finished poll sessions by outcome.",
			},
			[]string{"outcome"},
		),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "phase",
				Help:      "Current phase code of the poll session for a site.",
			},
			[]string{"site_id"},
		),
		secondsWaiting: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "seconds_waiting",
				Help:      "Seconds the poll session for a site has been waiting.",
			},
			[]string{"site_id"},
		),

		lastAttempts: make(map[string]int),
	}

	m.Registry.MustRegister(m.attempts, m.outcomes, m.phase, m.secondsWaiting)
	return m
}

func (m *MetricsSink) Deliver(_ context.Context, s status.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	site := strconv.FormatInt(s.SiteID, 10)

	// Attempts are counted by delta so repeated snapshots never double count.
	if prev := m.lastAttempts[s.SessionID]; s.Attempts > prev {
		code := strconv.Itoa(int(s.LastErrorCode))
		m.attempts.WithLabelValues(code).Add(float64(s.Attempts - prev))
		m.lastAttempts[s.SessionID] = s.Attempts
	}

	m.phase.WithLabelValues(site).Set(float64(s.Phase))
	m.secondsWaiting.WithLabelValues(site).Set(float64(s.SecondsWaiting))

	if s.Terminal() {
		m.outcomes.WithLabelValues(status.PhaseName(s.Phase)).Inc()
		delete(m.lastAttempts, s.SessionID)
	}
	return nil
}

// Handler exposes the sink's registry over HTTP.
func (m *MetricsSink) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
