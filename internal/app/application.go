package app

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/catalog"
	"mcpbridge/internal/infra/httpapi"
	"mcpbridge/internal/infra/mcpserver"
	"mcpbridge/internal/infra/registry"
	"mcpbridge/internal/infra/telemetry"
)

// Application wires the gateway runtime and its dependencies.
type Application struct {
	ctx    context.Context
	cfg    domain.Config
	logger *zap.Logger

	registry *prometheus.Registry
	health   *telemetry.HealthTracker
	catalog  *catalog.Cache
	tools    *registry.Registry
	mcp      *mcpserver.Server
	http     *httpapi.Server
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context    context.Context
	Config     domain.Config
	Logger     *zap.Logger
	Registry   *prometheus.Registry
	Health     *telemetry.HealthTracker
	Catalog    *catalog.Cache
	Tools      *registry.Registry
	MCPServer  *mcpserver.Server
	HTTPServer *httpapi.Server
}

// NewApplication constructs the gateway runtime.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{
		ctx:      ctx,
		cfg:      opts.Config,
		logger:   logger.Named("app"),
		registry: opts.Registry,
		health:   opts.Health,
		catalog:  opts.Catalog,
		tools:    opts.Tools,
		mcp:      opts.MCPServer,
		http:     opts.HTTPServer,
	}
}

// Run serves the gateway, the observability endpoints and the MCP sync loop
// until the context ends or one of them fails.
func (a *Application) Run() error {
	a.logger.Info("gateway starting",
		zap.String("version", Version),
		zap.String("build", Build),
		zap.String("backend", a.cfg.Backend.URL),
		zap.String("addr", a.cfg.Server.Address()),
		zap.Int("registered", a.tools.Len()),
		zap.Strings("tools", a.tools.Names()),
		zap.Bool("mcp", a.mcp != nil),
	)

	group, ctx := errgroup.WithContext(a.ctx)
	group.Go(func() error {
		return a.http.ListenAndServe(ctx)
	})
	group.Go(func() error {
		return telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:            a.cfg.Observability.ListenAddress,
			EnableMetrics:   a.cfg.Observability.Metrics,
			EnableHealthz:   a.cfg.Observability.Healthz,
			Health:          a.health,
			Registry:        a.registry,
			ShutdownTimeout: a.cfg.Server.ShutdownTimeout(),
		}, a.logger)
	})
	if a.mcp != nil {
		group.Go(func() error {
			return a.mcp.Run(ctx)
		})
	} else {
		group.Go(func() error {
			a.warmCatalog(ctx)
			return nil
		})
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("gateway stopped with error", zap.Error(err))
		return err
	}
	a.logger.Info("gateway stopped")
	return nil
}

// warmCatalog fetches the catalog once so the first stream does not pay for
// it. Failures are left for the first real request to report.
func (a *Application) warmCatalog(ctx context.Context) {
	catalog, err := a.catalog.Get(ctx)
	if err != nil {
		a.logger.Warn("catalog warm-up failed", zap.Error(err))
		return
	}
	a.logger.Info("catalog warmed", zap.Int("tools", len(catalog.Tools)))
}
