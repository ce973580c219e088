package observability

import "time"

// MockMetricsRegistry is a no-op implementation of MetricsRegistry for
// testing.
type MockMetricsRegistry struct{}

func (m *MockMetricsRegistry) IncrementAdRequests(outcome string)            {}
func (m *MockMetricsRegistry) RecordAdRequestLatency(duration time.Duration) {}
func (m *MockMetricsRegistry) IncrementRetries()                             {}
func (m *MockMetricsRegistry) IncrementIdentifierResolutions(outcome string) {}
