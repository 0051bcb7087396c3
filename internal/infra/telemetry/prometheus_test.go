package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpbridge/internal/domain"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m)
	assert.NotNil(t, m.catalogLookups)
	assert.NotNil(t, m.catalogRefresh)
	assert.NotNil(t, m.catalogTools)
	assert.NotNil(t, m.activeSessions)
	assert.NotNil(t, m.sessionDuration)
	assert.NotNil(t, m.streamEvents)
	assert.NotNil(t, m.routeDuration)
}

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveCatalogLookup(domain.CatalogLookupHit)
	m.ObserveCatalogRefresh(20*time.Millisecond, nil)
	m.ObserveCatalogRefresh(20*time.Millisecond, errors.New("down"))
	m.SetCatalogTools(5)
	m.AddActiveSessions(1)
	m.ObserveSessionEnd(domain.SessionClosed, time.Minute)
	m.ObserveStreamEvent(domain.EventHeartbeat)
	m.ObserveRoute(domain.RouteMetric{
		Tool:     "get_orders",
		Status:   domain.RouteStatusSuccess,
		Reason:   domain.RouteReasonSuccess,
		Duration: 10 * time.Millisecond,
	})

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.GetName())
	}

	assert.Contains(t, names, "mcpbridge_catalog_lookups_total")
	assert.Contains(t, names, "mcpbridge_catalog_refresh_duration_seconds")
	assert.Contains(t, names, "mcpbridge_catalog_tools")
	assert.Contains(t, names, "mcpbridge_active_sessions")
	assert.Contains(t, names, "mcpbridge_session_duration_seconds")
	assert.Contains(t, names, "mcpbridge_stream_events_total")
	assert.Contains(t, names, "mcpbridge_route_duration_seconds")
}

func TestPrometheusMetrics_Values(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveCatalogLookup(domain.CatalogLookupHit)
	m.ObserveCatalogLookup(domain.CatalogLookupHit)
	m.ObserveCatalogLookup(domain.CatalogLookupStale)
	m.AddActiveSessions(2)
	m.AddActiveSessions(-1)
	m.SetCatalogTools(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.catalogLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogLookups.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.catalogTools))
}
