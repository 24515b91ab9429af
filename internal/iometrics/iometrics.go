// Package iometrics registers Prometheus collectors for the
// aggregation engine. Collectors use the default registry and are
// served by the HTTP API at /metrics.
package iometrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts aggregation runs by terminal status.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairmeta_runs_total",
		Help: "Total aggregation runs by terminal status",
	}, []string{"status"})

	// RunDuration tracks the wall time of one study aggregation.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pairmeta_run_duration_seconds",
		Help:    "Aggregation run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// ContributionsUpserted counts ledger rows written.
	ContributionsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairmeta_contributions_upserted_total",
		Help: "Total study contributions written to the ledger",
	})

	// ContributionsSkipped counts component rows rejected by validation.
	ContributionsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairmeta_contributions_skipped_total",
		Help: "Total component rows skipped by reason",
	}, []string{"reason"})

	// RetriesTotal counts transient-error retries of whole studies.
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairmeta_run_retries_total",
		Help: "Total aggregation retries after transient errors",
	})

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairmeta_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})
)

// Skip reasons used with ContributionsSkipped.
const (
	SkipInvalidValue = "invalid_value"
	SkipSmallSample  = "small_sample"
	SkipBadPairID    = "bad_pair_id"
	SkipExtremeR     = "extreme_correlation"
)
