package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels requests and ticks that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels transport, status or decode failures.
	OutcomeError = "error"
	// OutcomeStale labels responses dropped because a newer request was issued.
	OutcomeStale = "stale"
)

var (
	backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factoryos_console",
			Name:      "backend_requests_total",
			Help:      "Backend requests issued, partitioned by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	backendRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "factoryos_console",
			Name:      "backend_request_seconds",
			Help:      "Backend request latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"endpoint"},
	)

	feedRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factoryos_console",
			Name:      "feed_refreshes_total",
			Help:      "Polling feed refreshes, partitioned by feed and outcome.",
		},
		[]string{"feed", "outcome"},
	)

	mountedPages = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "factoryos_console",
			Name:      "mounted_pages",
			Help:      "Page sessions currently mounted, by kind.",
		},
		[]string{"kind"},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factoryos_console",
			Name:      "actions_total",
			Help:      "Transactional actions dispatched, partitioned by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
)

// Register attaches console collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		backendRequestsTotal,
		backendRequestSeconds,
		feedRefreshesTotal,
		mountedPages,
		actionsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRequest records one backend round trip.
func ObserveRequest(endpoint string, duration time.Duration, outcome string) {
	backendRequestsTotal.WithLabelValues(endpoint, normaliseOutcome(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	backendRequestSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveRefresh records the outcome of one feed tick.
func ObserveRefresh(feed, outcome string) {
	feedRefreshesTotal.WithLabelValues(feed, normaliseOutcome(outcome)).Inc()
}

// ObserveAction records the terminal outcome of a transactional action.
func ObserveAction(action, outcome string) {
	actionsTotal.WithLabelValues(action, normaliseOutcome(outcome)).Inc()
}

// PageMounted adjusts the mounted page gauge by delta.
func PageMounted(kind string, delta float64) {
	mountedPages.WithLabelValues(kind).Add(delta)
}

func normaliseOutcome(outcome string) string {
	switch outcome {
	case OutcomeError, OutcomeStale:
		return outcome
	}
	return OutcomeSuccess
}
