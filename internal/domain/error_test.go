package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnavailable_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Unavailable("backend.fetch_catalog", cause)

	require.ErrorIs(t, err, ErrBackendUnavailable)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "backend.fetch_catalog")
	require.Contains(t, err.Error(), "connection refused")

	code, ok := CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, CodeUnavailable, code)
}

func TestCodeFrom_Sentinels(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{fmt.Errorf("wrap: %w", ErrToolNotFound), CodeNotFound},
		{ErrInvalidArguments, CodeInvalidArgument},
		{ErrStreamTransport, CodeUnavailable},
		{ErrMalformedCatalog, CodeInternal},
		{context.DeadlineExceeded, CodeDeadlineExceeded},
	}
	for _, tc := range cases {
		code, ok := CodeFrom(tc.err)
		require.True(t, ok, tc.err.Error())
		require.Equal(t, tc.code, code)
	}

	_, ok := CodeFrom(errors.New("other"))
	require.False(t, ok)
}

func TestWrap_KeepsExistingOp(t *testing.T) {
	inner := E(CodeNotFound, "router.route", "tool x not found", ErrToolNotFound)
	wrapped := Wrap(CodeInternal, "httpapi.invoke", inner)
	require.Same(t, inner, wrapped)

	bare := &Error{Code: CodeNotFound, Message: "missing"}
	wrapped = Wrap(CodeInternal, "httpapi.invoke", bare)
	require.Equal(t, "httpapi.invoke", wrapped.Op)
	require.Equal(t, CodeNotFound, wrapped.Code)
}

func TestRouteStageFrom(t *testing.T) {
	err := NewRouteError(RouteStageValidate, "nope", ErrToolNotFound)
	stage, ok := RouteStageFrom(fmt.Errorf("outer: %w", err))
	require.True(t, ok)
	require.Equal(t, RouteStageValidate, stage)
	require.ErrorIs(t, err, ErrToolNotFound)
	require.Same(t, err, NewRouteError(RouteStageCall, "nope", err))
}
