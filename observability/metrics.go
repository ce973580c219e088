package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ad requests dispatched, labelled by outcome (success/failure/cancelled)
	AdRequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owclient_ad_requests_total",
			Help: "Total OpenWrap ad requests dispatched",
		},
		[]string{"outcome"},
	)

	// end-to-end ad request latency, retries included
	AdRequestLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "owclient_ad_request_duration_seconds",
			Help:    "Histogram of ad request latencies",
			Buckets: prometheus.DefBuckets,
		},
	)

	// retry attempts beyond the first try
	RetryCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "owclient_ad_request_retries_total",
			Help: "Total ad request retry attempts",
		},
	)

	// advertising identifier resolutions, labelled by outcome
	IdentifierResolutionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owclient_identifier_resolutions_total",
			Help: "Total advertising identifier resolutions",
		},
		[]string{"outcome"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		AdRequestCount,
		AdRequestLatency,
		RetryCount,
		IdentifierResolutionCount,
	)
}
