package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestIDHeader carries the correlation id between clients, the bridge and the backend.
const RequestIDHeader = "X-Request-Id"

type requestContextKey struct{}

// RequestMeta identifies the request or stream session a log line belongs to.
type RequestMeta struct {
	RequestID string
	SessionID string
	TraceID   string
	SpanID    string
}

func (m RequestMeta) IsZero() bool {
	return m == RequestMeta{}
}

// Fields renders the non-empty identifiers as zap fields.
func (m RequestMeta) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 4)
	if m.RequestID != "" {
		fields = append(fields, RequestIDField(m.RequestID))
	}
	if m.SessionID != "" {
		fields = append(fields, SessionIDField(m.SessionID))
	}
	if m.TraceID != "" {
		fields = append(fields, TraceIDField(m.TraceID))
	}
	if m.SpanID != "" {
		fields = append(fields, SpanIDField(m.SpanID))
	}
	return fields
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meta.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, requestContextKey{}, meta)
}

func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestContextKey{}).(RequestMeta)
	return meta, ok && !meta.IsZero()
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	meta, _ := RequestMetaFromContext(ctx)
	return meta.RequestID, meta.RequestID != ""
}

func NewRequestID() string {
	return uuid.NewString()
}

// EnsureRequestMeta attaches a request id to ctx, reusing requestID when
// non-empty, then any id already on ctx, and minting one otherwise.
// Trace and span ids are copied from an active span when present.
func EnsureRequestMeta(ctx context.Context, requestID string) (context.Context, RequestMeta) {
	meta, _ := RequestMetaFromContext(ctx)
	if requestID != "" {
		meta.RequestID = requestID
	}
	if meta.RequestID == "" {
		meta.RequestID = NewRequestID()
	}
	if ctx != nil {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			meta.TraceID = spanCtx.TraceID().String()
			meta.SpanID = spanCtx.SpanID().String()
		}
	}
	return WithRequestMeta(ctx, meta), meta
}

// WithSessionID tags ctx with a stream session id, keeping any request meta.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	meta, _ := RequestMetaFromContext(ctx)
	meta.SessionID = sessionID
	return WithRequestMeta(ctx, meta)
}

func LoggerWithRequest(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	meta, ok := RequestMetaFromContext(ctx)
	if !ok {
		return base
	}
	return base.With(meta.Fields()...)
}
