// Package metrics exposes Prometheus collectors for refresh passes and
// notification fan-out.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the refresh pipeline.
type Metrics struct {
	// Full refresh latency, fetch to publication
	RefreshLatency prometheus.Histogram

	// Failed refreshes by stage: "fetch", "publish"
	RefreshFailures *prometheus.CounterVec

	// Live notifications after the last pass, by type
	Notifications *prometheus.GaugeVec

	// Transactions skipped for data-quality problems, by transaction kind
	InvariantViolations *prometheus.CounterVec

	// Notifications handed to the publisher, by outcome: "ok", "error"
	Published *prometheus.CounterVec

	// HTTP request latency by route pattern and status class
	HTTPLatency *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RefreshLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "medrent_refresh_duration_seconds",
			Help:    "Duration of a full calendar and stats refresh",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		RefreshFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medrent_refresh_failures_total",
			Help: "Refresh passes that failed, by stage",
		}, []string{"stage"}),

		Notifications: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "medrent_notifications",
			Help: "Notifications produced by the last refresh, by type",
		}, []string{"type"}),

		InvariantViolations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medrent_invariant_violations_total",
			Help: "Transactions left out of statistics for data-quality problems",
		}, []string{"kind"}),

		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "medrent_notifications_published_total",
			Help: "Notifications sent to the message broker, by outcome",
		}, []string{"outcome"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medrent_http_request_duration_seconds",
			Help:    "Duration of HTTP requests, by route and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRefresh records the duration of a completed refresh.
func (m *Metrics) ObserveRefresh(d time.Duration) {
	if m != nil {
		m.RefreshLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRefreshFailure(stage string) {
	if m != nil {
		m.RefreshFailures.WithLabelValues(stage).Inc()
	}
}

// SetNotifications replaces the per-type gauge values. Types missing from
// counts are reset to zero.
func (m *Metrics) SetNotifications(counts map[string]int, types []string) {
	if m == nil {
		return
	}
	for _, t := range types {
		m.Notifications.WithLabelValues(t).Set(float64(counts[t]))
	}
}

func (m *Metrics) IncrementInvariantViolation(kind string) {
	if m != nil {
		m.InvariantViolations.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementPublished(outcome string) {
	if m != nil {
		m.Published.WithLabelValues(outcome).Inc()
	}
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, so ids do not explode the label space.
func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPLatency.WithLabelValues(route, statusClass(status)).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
