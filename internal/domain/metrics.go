package domain

import "time"

// CatalogLookupResult labels how a catalog read was served.
type CatalogLookupResult string

const (
	// CatalogLookupHit served a fresh cached catalog.
	CatalogLookupHit CatalogLookupResult = "hit"
	// CatalogLookupRefreshed served a catalog fetched for this read.
	CatalogLookupRefreshed CatalogLookupResult = "refreshed"
	// CatalogLookupStale served a stale catalog after a failed refresh.
	CatalogLookupStale CatalogLookupResult = "stale"
	// CatalogLookupFailed served nothing.
	CatalogLookupFailed CatalogLookupResult = "failed"
)

// RouteStatus labels the outcome of an invocation.
type RouteStatus string

const (
	RouteStatusSuccess RouteStatus = "success"
	RouteStatusError   RouteStatus = "error"
)

// RouteReason describes why an invocation ended with a status.
type RouteReason string

const (
	RouteReasonSuccess          RouteReason = "success"
	RouteReasonInvalidRequest   RouteReason = "invalid_request"
	RouteReasonToolNotFound     RouteReason = "tool_not_found"
	RouteReasonBackendFailed    RouteReason = "backend_unavailable"
	RouteReasonTimeoutExecution RouteReason = "timeout_execution"
	RouteReasonCanceled         RouteReason = "canceled"
	RouteReasonUnknown          RouteReason = "unknown"
)

// RouteMetric captures one routed invocation.
type RouteMetric struct {
	Tool     string
	Status   RouteStatus
	Reason   RouteReason
	Duration time.Duration
}

// Metrics records operational metrics for the catalog, sessions and routing.
type Metrics interface {
	ObserveCatalogLookup(result CatalogLookupResult)
	ObserveCatalogRefresh(duration time.Duration, err error)
	SetCatalogTools(count int)
	AddActiveSessions(delta int)
	ObserveSessionEnd(state SessionState, duration time.Duration)
	ObserveStreamEvent(event string)
	ObserveRoute(metric RouteMetric)
}
