package mailer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records dispatch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	dispatches      *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	connTests       *prometheus.CounterVec
}

// NewMetrics registers the mailer collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dispatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailer_dispatch_total",
				Help: "Email dispatch attempts by auth mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		dispatchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailer_dispatch_duration_seconds",
				Help:    "End-to-end email dispatch latency in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"mode"},
		),
		connTests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailer_connection_tests_total",
				Help: "SMTP connection tests by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observeDispatch(mode AuthMode, r Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := string(mode)
	if label == "" {
		label = "unknown"
	}
	outcome := "success"
	if !r.Success {
		outcome = string(r.Kind)
	}
	m.dispatches.WithLabelValues(label, outcome).Inc()
	m.dispatchLatency.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (m *Metrics) observeConnectionTest(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.connTests.WithLabelValues(result).Inc()
}
