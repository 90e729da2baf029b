package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Orders           *prometheus.CounterVec
	Decisions        *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	RequestSeconds   *prometheus.HistogramVec
	InflightRequests prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Orders: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_orders_total",
			Help: "Total number of order placement attempts by outcome.",
		}, []string{"status"}),
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_eligibility_decisions_total",
			Help: "Total number of delivery eligibility decisions by reason.",
		}, []string{"reason"}),
		ProviderErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hermes_geocoding_provider_errors_total",
			Help: "Total number of failed or timed out geocoding provider calls.",
		}, []string{"provider"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hermes_geocoding_request_duration_seconds",
			Help:    "Duration of requests to the geocoding providers.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		InflightRequests: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hermes_inflight_requests",
			Help: "Current number of API requests being served.",
		}),
	}
}
