package telemetry

import (
	"time"

	"mcpbridge/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveCatalogLookup(_ domain.CatalogLookupResult) {}

func (n *NoopMetrics) ObserveCatalogRefresh(_ time.Duration, _ error) {}

func (n *NoopMetrics) SetCatalogTools(_ int) {}

func (n *NoopMetrics) AddActiveSessions(_ int) {}

func (n *NoopMetrics) ObserveSessionEnd(_ domain.SessionState, _ time.Duration) {}

func (n *NoopMetrics) ObserveStreamEvent(_ string) {}

func (n *NoopMetrics) ObserveRoute(_ domain.RouteMetric) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
