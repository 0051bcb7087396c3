//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/backend"
	"mcpbridge/internal/infra/catalog"
	"mcpbridge/internal/infra/httpapi"
	"mcpbridge/internal/infra/mcpserver"
	"mcpbridge/internal/infra/registry"
	"mcpbridge/internal/infra/stream"
)

var CoreInfraSet = wire.NewSet(
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
)

var BackendSet = wire.NewSet(
	NewBackendClient,
	wire.Bind(new(catalog.Source), new(*backend.Client)),
	wire.Bind(new(domain.ToolInvoker), new(*backend.Client)),
)

var CatalogSet = wire.NewSet(
	NewCatalogCache,
	wire.Bind(new(stream.CatalogReader), new(*catalog.Cache)),
	wire.Bind(new(mcpserver.CatalogReader), new(*catalog.Cache)),
)

var RoutingSet = wire.NewSet(
	NewToolRegistry,
	NewRouter,
	wire.Bind(new(domain.ToolRegistry), new(*registry.Registry)),
)

var FrontSet = wire.NewSet(
	NewStreamManager,
	NewMCPServer,
	NewHTTPServer,
	wire.Bind(new(httpapi.StreamServer), new(*stream.Manager)),
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	BackendSet,
	CatalogSet,
	RoutingSet,
	FrontSet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
