package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mcpbridge/internal/domain"
)

type PrometheusMetrics struct {
	catalogLookups  *prometheus.CounterVec
	catalogRefresh  *prometheus.HistogramVec
	catalogTools    prometheus.Gauge
	activeSessions  prometheus.Gauge
	sessionDuration *prometheus.HistogramVec
	streamEvents    *prometheus.CounterVec
	routeDuration   *prometheus.HistogramVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		catalogLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpbridge_catalog_lookups_total",
				Help: "Catalog reads by how they were served",
			},
			[]string{"result"},
		),
		catalogRefresh: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpbridge_catalog_refresh_duration_seconds",
				Help:    "Duration of backend catalog fetches in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
		catalogTools: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpbridge_catalog_tools",
				Help: "Number of tools in the cached catalog",
			},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpbridge_active_sessions",
				Help: "Current number of open stream sessions",
			},
		),
		sessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpbridge_session_duration_seconds",
				Help:    "Lifetime of stream sessions in seconds",
				Buckets: []float64{1, 10, 30, 60, 300, 900, 1800, 3600, 14400},
			},
			[]string{"state"},
		),
		streamEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpbridge_stream_events_total",
				Help: "Stream events written to clients",
			},
			[]string{"event"},
		),
		routeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpbridge_route_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "status", "reason"},
		),
	}
}

func (p *PrometheusMetrics) ObserveCatalogLookup(result domain.CatalogLookupResult) {
	p.catalogLookups.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusMetrics) ObserveCatalogRefresh(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.catalogRefresh.WithLabelValues(status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) SetCatalogTools(count int) {
	p.catalogTools.Set(float64(count))
}

func (p *PrometheusMetrics) AddActiveSessions(delta int) {
	p.activeSessions.Add(float64(delta))
}

func (p *PrometheusMetrics) ObserveSessionEnd(state domain.SessionState, duration time.Duration) {
	p.sessionDuration.WithLabelValues(string(state)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveStreamEvent(event string) {
	p.streamEvents.WithLabelValues(event).Inc()
}

func (p *PrometheusMetrics) ObserveRoute(metric domain.RouteMetric) {
	p.routeDuration.WithLabelValues(metric.Tool, string(metric.Status), string(metric.Reason)).Observe(metric.Duration.Seconds())
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
