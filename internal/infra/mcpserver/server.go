// Package mcpserver exposes the tool catalog and router over the MCP
// Streamable HTTP transport.
package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/telemetry"
)

// CatalogReader is the read side of the catalog cache.
type CatalogReader interface {
	Get(ctx context.Context) (domain.ToolCatalog, error)
}

type Options struct {
	Name         string
	Version      string
	SyncInterval time.Duration
	Health       *telemetry.HealthTracker
	Logger       *zap.Logger
}

// Server lists the registered subset of the catalog as MCP tools and
// answers tools/call through the router.
type Server struct {
	catalog  CatalogReader
	registry domain.ToolRegistry
	router   domain.Router
	interval time.Duration
	health   *telemetry.HealthCheck
	logger   *zap.Logger

	server  *mcp.Server
	tools   *toolSet
	handler http.Handler
}

func New(catalog CatalogReader, registry domain.ToolRegistry, router domain.Router, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mcpserver")
	name := opts.Name
	if name == "" {
		name = "mcpbridge"
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	interval := opts.SyncInterval
	if interval <= 0 {
		interval = time.Duration(domain.DefaultCatalogTTLSeconds) * time.Second
	}

	s := &Server{
		catalog:  catalog,
		registry: registry,
		router:   router,
		interval: interval,
		health:   opts.Health.Register("mcp-sync", 2*interval),
		logger:   logger,
	}
	s.server = mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, &mcp.ServerOptions{HasTools: true})
	s.tools = newToolSet(s.server, s.toolHandler, logger)

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	s.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         3600,
	}).Handler(streamable)
	return s
}

// Handler serves the Streamable HTTP endpoint.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Sync mirrors the current catalog, restricted to registered tools.
// A stale catalog is still applied; an unchanged tool list makes that a no-op.
func (s *Server) Sync(ctx context.Context) error {
	catalog, err := s.catalog.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrStaleCatalog) {
		s.health.Fail(err)
		return err
	}

	tools := make([]domain.ToolDescriptor, 0, len(catalog.Tools))
	for _, tool := range catalog.Tools {
		if _, ok := s.registry.Lookup(tool.Name); ok {
			tools = append(tools, tool)
		}
	}
	if s.tools.Apply(tools) {
		s.logger.Info("mcp tools synced",
			telemetry.EventField(telemetry.EventMCPSync),
			zap.Int("tools", len(tools)),
			zap.Int("catalog", len(catalog.Tools)),
		)
	}
	s.health.Beat()
	return nil
}

// Run syncs immediately and then once per interval until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.Sync(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("mcp tool sync failed", telemetry.EventField(telemetry.EventMCPSync), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args []byte
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		resp, err := s.router.Route(ctx, name, args)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		result := &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(resp)}},
		}
		if trimmed := bytes.TrimSpace(resp); len(trimmed) > 0 && trimmed[0] == '{' {
			result.StructuredContent = resp
		}
		return result, nil
	}
}
