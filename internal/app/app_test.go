package app

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/stream"
)

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{domain.EnvBackendURL, domain.EnvServerPort} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv(domain.EnvServerPort, "9001")

	disabled := false
	cfg, err := LoadConfig(context.Background(), ServeConfig{
		EnvFiles: []string{filepath.Join(t.TempDir(), "missing.env")},
		Overrides: ConfigOverrides{
			Port:       9100,
			BackendURL: " http://backend.test/mcp ",
			LogLevel:   "DEBUG",
			MCPEnabled: &disabled,
		},
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "http://backend.test/mcp", cfg.Backend.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.MCP.Enabled)
	assert.True(t, cfg.Observability.Metrics)
}

func TestLoadConfig_EnvWithoutOverrides(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv(domain.EnvServerPort, "9001")
	t.Setenv(domain.EnvBackendURL, "http://laravel.test/mcp")

	cfg, err := LoadConfig(context.Background(), ServeConfig{
		EnvFiles: []string{filepath.Join(t.TempDir(), "missing.env")},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "http://laravel.test/mcp", cfg.Backend.URL)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	clearGatewayEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MCP_SERVER_PORT=9300\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(domain.EnvServerPort) })

	cfg, err := LoadConfig(context.Background(), ServeConfig{EnvFiles: []string{envFile}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Server.Port)
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	clearGatewayEnv(t)

	_, err := LoadConfig(context.Background(), ServeConfig{
		EnvFiles:  []string{filepath.Join(t.TempDir(), "missing.env")},
		Overrides: ConfigOverrides{BackendURL: "ftp://nope", Port: 70000},
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")
	assert.Contains(t, err.Error(), "server.port 70000 out of range")
}

func TestBuildLogger(t *testing.T) {
	logger, err := BuildLogger(domain.LogConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	logger, err = BuildLogger(domain.LogConfig{})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = BuildLogger(domain.LogConfig{Level: "loud"})
	require.Error(t, err)

	_, err = BuildLogger(domain.LogConfig{Format: "xml"})
	require.Error(t, err)
}

type backendStub struct {
	calls chan string
}

func newBackend(t *testing.T) (*httptest.Server, *backendStub) {
	t.Helper()
	stub := &backendStub{calls: make(chan string, 8)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/mcp/tools":
			_, _ = io.WriteString(w, `{"tools": {
				"get_orders": {"description": "List orders", "inputSchema": {"type": "object"}},
				"get_products": {"description": "List products"}
			}}`)
		case r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			stub.calls <- r.URL.Path + " " + string(body)
			_, _ = io.WriteString(w, `{"orders": []}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, stub
}

func testConfig(backendURL string) domain.Config {
	cfg := domain.DefaultConfig()
	cfg.Backend.URL = backendURL
	cfg.Stream.HeartbeatSeconds = 1
	return cfg
}

func TestInitializeApplication_Gateway(t *testing.T) {
	backendSrv, stub := newBackend(t)
	cfg := testConfig(backendSrv.URL + "/mcp")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := InitializeApplication(ctx, cfg, LoggingConfig{Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NotNil(t, application.mcp)
	require.Equal(t, domain.DefaultTools, application.tools.Names())

	front := httptest.NewServer(application.http.Handler())
	defer front.Close()

	resp, err := http.Post(front.URL+"/sse", "application/json", strings.NewReader(`{"tool": "get_orders", "params": {"status": "open"}}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"orders": []}`, string(body))
	assert.Equal(t, `/mcp/get_orders {"status": "open"}`, <-stub.calls)

	resp, err = http.Post(front.URL+"/mcp/sse", "application/json", strings.NewReader(`{"tool": "drop_tables"}`))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error": "Tool drop_tables not found"}`, string(body))

	streamCtx, stopStream := context.WithTimeout(ctx, 5*time.Second)
	defer stopStream()
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, front.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream; charset=utf-8", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	connected, err := stream.ReadEvent(reader)
	require.NoError(t, err)
	assert.Equal(t, domain.EventConnected, connected.Name)

	tools, err := stream.ReadEvent(reader)
	require.NoError(t, err)
	require.Equal(t, domain.EventTools, tools.Name)
	var listed struct {
		Type  string           `json:"type"`
		Tools []map[string]any `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(tools.Data, &listed))
	assert.Equal(t, domain.EventTools, listed.Type)
	require.Len(t, listed.Tools, 2)
	assert.Equal(t, "get_orders", listed.Tools[0]["name"])
}

func TestInitializeApplication_MCPDisabled(t *testing.T) {
	backendSrv, _ := newBackend(t)
	cfg := testConfig(backendSrv.URL + "/mcp")
	cfg.MCP.Enabled = false

	application, err := InitializeApplication(context.Background(), cfg, LoggingConfig{})
	require.NoError(t, err)
	assert.Nil(t, application.mcp)

	rec := httptest.NewRecorder()
	application.http.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, cfg.MCP.Path, strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitializeApplication_BadBackendURL(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Backend.URL = "::not a url"

	_, err := InitializeApplication(context.Background(), cfg, LoggingConfig{})
	require.Error(t, err)
}

func TestInitializeApplication_BadRegistry(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Tools = []domain.ToolRoute{{Name: "a"}, {Name: "a"}}

	_, err := InitializeApplication(context.Background(), cfg, LoggingConfig{})
	require.Error(t, err)
}

func TestApplication_WarmCatalog(t *testing.T) {
	backendSrv, _ := newBackend(t)
	cfg := testConfig(backendSrv.URL + "/mcp")

	application, err := InitializeApplication(context.Background(), cfg, LoggingConfig{})
	require.NoError(t, err)

	application.warmCatalog(context.Background())
	snapshot, ok := application.catalog.Snapshot()
	require.True(t, ok)
	assert.Len(t, snapshot.Tools, 2)
}
