package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// Collectors live on a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Geolocation API Metrics
	GeoAPIRequestsTotal   *prometheus.CounterVec
	GeoAPIRequestDuration prometheus.Histogram

	// Application Metrics
	LookupsTotal       *prometheus.CounterVec
	LookupErrors       *prometheus.CounterVec
	LookupsSuperseded  prometheus.Counter
	MapInitializations prometheus.Counter
	ActiveSessions     prometheus.Gauge
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint", "status"},
		),

		GeoAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_api_requests_total",
				Help: "Total number of requests sent to the geolocation API",
			},
			[]string{"outcome"},
		),

		GeoAPIRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geo_api_request_duration_seconds",
				Help:    "Geolocation API latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ip_lookups_total",
				Help: "Total number of submitted lookups",
			},
			[]string{"result"},
		),

		LookupErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ip_lookups_errors_total",
				Help: "Total number of failed lookups",
			},
			[]string{"error_type"},
		),

		LookupsSuperseded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ip_lookups_superseded_total",
				Help: "Lookup responses discarded because a newer lookup was already applied",
			},
		),

		MapInitializations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "map_initializations_total",
				Help: "Number of map handles created",
			},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_sessions_active",
				Help: "Number of live browser sessions",
			},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer gives tests access to the collected values
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
