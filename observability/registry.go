package observability

import "time"

// MetricsRegistry provides an interface for recording client metrics.
// Components take it by injection instead of touching the global Prometheus
// metrics directly.
type MetricsRegistry interface {
	IncrementAdRequests(outcome string)
	RecordAdRequestLatency(duration time.Duration)
	IncrementRetries()
	IncrementIdentifierResolutions(outcome string)
}

// PrometheusRegistry implements MetricsRegistry over the package-level
// Prometheus metrics.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementAdRequests(outcome string) {
	AdRequestCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) RecordAdRequestLatency(duration time.Duration) {
	AdRequestLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementRetries() {
	RetryCount.Inc()
}

func (r *PrometheusRegistry) IncrementIdentifierResolutions(outcome string) {
	IdentifierResolutionCount.WithLabelValues(outcome).Inc()
}
