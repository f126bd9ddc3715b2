package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counters and gauges for the sync/alert pipeline. Registered once on the
// default registry; every service binary exposes them via StartServer.
var (
	ProviderFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsradar_provider_fallbacks_total",
		Help: "provider chain fallbacks, by provider that failed",
	}, []string{"provider"})

	QuotesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oddsradar_quotes_ingested_total",
		Help: "odds quote rows written",
	})

	OpportunitiesDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oddsradar_opportunities_detected_total",
		Help: "profitable arbitrage detections persisted",
	})

	AlertsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsradar_alerts_dispatched_total",
		Help: "notifications dispatched, by kind",
	}, []string{"kind"})

	PushFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oddsradar_push_failures_total",
		Help: "push webhook deliveries that failed",
	})

	SnapshotAgeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "oddsradar_snapshot_age_seconds",
		Help: "age of the persisted odds snapshot",
	})
)

func init() {
	prometheus.MustRegister(
		ProviderFallbacks,
		QuotesIngested,
		OpportunitiesDetected,
		AlertsDispatched,
		PushFailures,
		SnapshotAgeSeconds,
	)
}
