package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldTool       = "tool"
	FieldSessionID  = "session_id"
	FieldState      = "state"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventCatalogFetch        = "catalog_fetch"
	EventCatalogFetchFailure = "catalog_fetch_failure"
	EventCatalogStale        = "catalog_stale"
	EventSessionOpen         = "session_open"
	EventSessionTransition   = "session_transition"
	EventSessionEnd          = "session_end"
	EventRouteError          = "route_error"
	EventMCPSync             = "mcp_sync"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func SessionIDField(id string) zap.Field {
	return zap.String(FieldSessionID, id)
}

func StateField(state string) zap.Field {
	return zap.String(FieldState, state)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
