package metrics_test

import (
	"testing"

	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	m.Decisions.WithLabelValues("approved").Inc()
	m.ProviderErrors.WithLabelValues("google").Add(2)
	m.RequestSeconds.WithLabelValues("google").Observe(0.2)
	m.InflightRequests.Inc()

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("approved")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.ProviderErrors.WithLabelValues("google")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.InflightRequests), 1e-9)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "hermes_geocoding_request_duration_seconds")
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewMetrics(reg)

	assert.Panics(t, func() { metrics.NewMetrics(reg) })
}
