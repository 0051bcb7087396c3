package router

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"mcpbridge/internal/domain"
)

type MetricRouter struct {
	inner   domain.Router
	metrics domain.Metrics
}

func NewMetricRouter(inner domain.Router, metrics domain.Metrics) *MetricRouter {
	return &MetricRouter{
		inner:   inner,
		metrics: metrics,
	}
}

func (r *MetricRouter) Route(ctx context.Context, tool string, arguments json.RawMessage) (json.RawMessage, error) {
	start := time.Now()
	resp, err := r.inner.Route(ctx, tool, arguments)
	r.observe(tool, time.Since(start), err)
	return resp, err
}

func (r *MetricRouter) observe(tool string, duration time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	status, reason := classifyRouteResult(err)
	if errors.Is(err, domain.ErrToolNotFound) {
		// unbounded label values from clients
		tool = "unregistered"
	}
	r.metrics.ObserveRoute(domain.RouteMetric{
		Tool:     tool,
		Status:   status,
		Reason:   reason,
		Duration: duration,
	})
}

func classifyRouteResult(err error) (domain.RouteStatus, domain.RouteReason) {
	if err == nil {
		return domain.RouteStatusSuccess, domain.RouteReasonSuccess
	}
	if errors.Is(err, domain.ErrToolNotFound) {
		return domain.RouteStatusError, domain.RouteReasonToolNotFound
	}
	if errors.Is(err, domain.ErrInvalidArguments) {
		return domain.RouteStatusError, domain.RouteReasonInvalidRequest
	}
	if errors.Is(err, context.Canceled) {
		return domain.RouteStatusError, domain.RouteReasonCanceled
	}
	if stage, ok := domain.RouteStageFrom(err); ok {
		switch stage {
		case domain.RouteStageDecode, domain.RouteStageValidate:
			return domain.RouteStatusError, domain.RouteReasonInvalidRequest
		case domain.RouteStageCall:
			if errors.Is(err, context.DeadlineExceeded) {
				return domain.RouteStatusError, domain.RouteReasonTimeoutExecution
			}
			if errors.Is(err, domain.ErrBackendUnavailable) {
				return domain.RouteStatusError, domain.RouteReasonBackendFailed
			}
		}
	}
	return domain.RouteStatusError, domain.RouteReasonUnknown
}
