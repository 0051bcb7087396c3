package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/telemetry"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL + "/mcp/", Logger: zap.NewNop()})
	require.NoError(t, err)
	return client
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)

	_, err = NewClient(Options{BaseURL: "ftp://example.com"})
	require.Error(t, err)
}

func TestClient_FetchCatalog(t *testing.T) {
	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/mcp/tools", r.URL.Path)
		_, _ = io.WriteString(w, `{"tools":{"get_orders":{"description":"orders","inputSchema":{"type":"object"}}}}`)
	}))
	client.now = func() time.Time { return fetchedAt }

	catalog, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, fetchedAt, catalog.FetchedAt)
	require.Equal(t, []string{"get_orders"}, catalog.Names())
}

func TestClient_FetchCatalogNon2xx(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := client.FetchCatalog(context.Background())
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "boom", statusErr.Body)
}

func TestClient_FetchCatalogTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := NewClient(Options{BaseURL: base})
	require.NoError(t, err)

	_, err = client.FetchCatalog(context.Background())
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestClient_InvokeForwardsArgumentsVerbatim(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/mcp/get_orders", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "req-1", r.Header.Get(telemetry.RequestIDHeader))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"status":"completed","limit":5}`, string(body))
		_, _ = io.WriteString(w, `{"success":true,"data":[1,2]}`)
	}))

	ctx := telemetry.WithRequestMeta(context.Background(), telemetry.RequestMeta{RequestID: "req-1"})
	resp, err := client.Invoke(ctx, "get_orders", json.RawMessage(`{"status":"completed","limit":5}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true,"data":[1,2]}`, string(resp))
	require.EqualValues(t, 1, calls.Load())
}

func TestClient_InvokeEmptyArgumentsSendsObject(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{}`, string(body))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))

	_, err := client.Invoke(context.Background(), "get_products", nil)
	require.NoError(t, err)
}

func TestClient_InvokeErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mcp/fails":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"db down"}`)
		default:
			_, _ = io.WriteString(w, `<html>`)
		}
	}))

	_, err := client.Invoke(context.Background(), "fails", json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)

	_, err = client.Invoke(context.Background(), "html", json.RawMessage(`{}`))
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrBackendUnavailable)
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeInternal, code)
}

func TestClient_HeadersApplied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		BaseURL: server.URL,
		Headers: map[string]string{"authorization": "Bearer token"},
	})
	require.NoError(t, err)

	catalog, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Empty(t, catalog.Tools)
}

func TestEscapePath(t *testing.T) {
	require.Equal(t, "get_orders", escapePath("get_orders"))
	require.Equal(t, "reports/daily%20sales", escapePath("/reports/daily sales/"))
}
