package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/backend"
	"mcpbridge/internal/infra/catalog"
	"mcpbridge/internal/infra/httpapi"
	"mcpbridge/internal/infra/mcpserver"
	"mcpbridge/internal/infra/registry"
	"mcpbridge/internal/infra/router"
	"mcpbridge/internal/infra/stream"
	"mcpbridge/internal/infra/telemetry"
)

func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

func NewMetrics(reg *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(reg)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

func NewBackendClient(cfg domain.Config, logger *zap.Logger) (*backend.Client, error) {
	return backend.NewClient(backend.Options{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout(),
		Headers: cfg.Backend.Headers,
		Logger:  logger,
	})
}

func NewCatalogCache(
	cfg domain.Config,
	source catalog.Source,
	metrics domain.Metrics,
	health *telemetry.HealthTracker,
	logger *zap.Logger,
) *catalog.Cache {
	return catalog.NewCache(source, catalog.Options{
		TTL:            cfg.Catalog.TTL(),
		StaleOnError:   cfg.Catalog.StaleOnError,
		RefreshTimeout: cfg.Backend.Timeout(),
		Metrics:        metrics,
		Health:         health,
		Logger:         logger,
	})
}

func NewToolRegistry(cfg domain.Config) (*registry.Registry, error) {
	return registry.New(cfg.Tools)
}

// NewRouter returns the invocation router with metrics recorded around it.
func NewRouter(
	tools domain.ToolRegistry,
	invoker domain.ToolInvoker,
	metrics domain.Metrics,
	logger *zap.Logger,
) domain.Router {
	basic := router.NewBasicRouter(tools, invoker, router.Options{Logger: logger})
	return router.NewMetricRouter(basic, metrics)
}

func NewStreamManager(
	cfg domain.Config,
	catalog stream.CatalogReader,
	metrics domain.Metrics,
	logger *zap.Logger,
) *stream.Manager {
	return stream.NewManager(catalog, stream.Options{
		HeartbeatInterval: cfg.Stream.HeartbeatInterval(),
		Metrics:           metrics,
		Logger:            logger,
	})
}

// NewMCPServer returns nil when the MCP endpoint is disabled.
func NewMCPServer(
	cfg domain.Config,
	catalog mcpserver.CatalogReader,
	tools domain.ToolRegistry,
	rt domain.Router,
	health *telemetry.HealthTracker,
	logger *zap.Logger,
) *mcpserver.Server {
	if !cfg.MCP.Enabled {
		return nil
	}
	return mcpserver.New(catalog, tools, rt, mcpserver.Options{
		Name:         "mcpbridge",
		Version:      Version,
		SyncInterval: cfg.Catalog.TTL(),
		Health:       health,
		Logger:       logger,
	})
}

func NewHTTPServer(
	cfg domain.Config,
	streams httpapi.StreamServer,
	rt domain.Router,
	mcp *mcpserver.Server,
	logger *zap.Logger,
) *httpapi.Server {
	opts := httpapi.Options{
		Addr:            cfg.Server.Address(),
		Version:         Version,
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
		Logger:          logger,
	}
	if mcp != nil {
		opts.MCPPath = cfg.MCP.Path
		opts.MCPHandler = mcp.Handler()
	}
	return httpapi.New(streams, rt, opts)
}
