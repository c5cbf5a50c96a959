// Package metrics exposes Prometheus counters for the monitoring engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the engine's Prometheus metrics on a private registry so
// tests can create as many instances as they like.
type Collector struct {
	registry *prometheus.Registry

	PostsIngested    prometheus.Counter
	PostsDuplicate   prometheus.Counter
	AccountsFlagged  prometheus.Counter
	SurgesDetected   prometheus.Counter
	LoginSuccesses   prometheus.Counter
	LoginFailures    prometheus.Counter
	PoolRotations    prometheus.Counter
	CyclesCompleted  prometheus.Counter
	CampaignFailures prometheus.Counter
}

// New constructs a collector with all engine counters registered.
func New() *Collector {
	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagwatch",
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)

		return c
	}

	return &Collector{
		registry:         registry,
		PostsIngested:    counter("posts_ingested_total", "Posts stored after deduplication."),
		PostsDuplicate:   counter("posts_duplicate_total", "Posts skipped because their URL was already stored."),
		AccountsFlagged:  counter("accounts_flagged_total", "Authors newly or further flagged by the frequency detector."),
		SurgesDetected:   counter("surges_detected_total", "Day-over-day volume surges recorded."),
		LoginSuccesses:   counter("logins_success_total", "Account logins that produced a session."),
		LoginFailures:    counter("logins_failure_total", "Account logins that exhausted their retries."),
		PoolRotations:    counter("pool_rotations_total", "Pool reacquisitions triggered by capacity exhaustion."),
		CyclesCompleted:  counter("cycles_completed_total", "Polling cycles completed."),
		CampaignFailures: counter("campaign_failures_total", "Campaigns whose cycle failed and was contained."),
	}
}

// Handler returns an HTTP handler for exposing the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
