package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/telemetry"
)

// BasicRouter checks invocations against the static registry and forwards
// them to the backend. It never consults the live catalog.
type BasicRouter struct {
	registry domain.ToolRegistry
	invoker  domain.ToolInvoker
	logger   *zap.Logger
}

type Options struct {
	Logger *zap.Logger
}

func NewBasicRouter(registry domain.ToolRegistry, invoker domain.ToolInvoker, opts Options) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BasicRouter{
		registry: registry,
		invoker:  invoker,
		logger:   logger.Named("router"),
	}
}

func (r *BasicRouter) Route(ctx context.Context, tool string, arguments json.RawMessage) (json.RawMessage, error) {
	const op = "router.route"
	start := time.Now()

	route, ok := r.registry.Lookup(tool)
	if !ok {
		err := domain.NewRouteError(domain.RouteStageValidate, tool,
			domain.E(domain.CodeNotFound, op, fmt.Sprintf("Tool %s not found", tool), domain.ErrToolNotFound))
		r.logRouteError(ctx, tool, start, err)
		return nil, err
	}

	args, err := normalizeArguments(arguments)
	if err != nil {
		err = domain.NewRouteError(domain.RouteStageDecode, tool,
			domain.E(domain.CodeInvalidArgument, op, err.Error(), domain.ErrInvalidArguments))
		r.logRouteError(ctx, tool, start, err)
		return nil, err
	}

	resp, err := r.invoker.Invoke(ctx, route.Path, args)
	if err != nil {
		err = domain.NewRouteError(domain.RouteStageCall, tool, err)
		r.logRouteError(ctx, tool, start, err)
		return nil, err
	}
	return resp, nil
}

func (r *BasicRouter) logRouteError(ctx context.Context, tool string, start time.Time, err error) {
	telemetry.LoggerWithRequest(ctx, r.logger).Warn("route failed",
		telemetry.EventField(telemetry.EventRouteError),
		telemetry.ToolField(tool),
		telemetry.DurationField(time.Since(start)),
		zap.Error(err),
	)
}

// normalizeArguments maps absent or null params to {} and rejects anything
// that is not a JSON object. Accepted objects pass through byte for byte.
func normalizeArguments(arguments json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(arguments)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`), nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("params must be a JSON object")
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("params is not valid JSON")
	}
	return arguments, nil
}

var _ domain.Router = (*BasicRouter)(nil)
