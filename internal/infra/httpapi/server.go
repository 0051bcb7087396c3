// Package httpapi is the HTTP front of the gateway: health check, the SSE
// stream and synchronous invocation.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/stream"
	"mcpbridge/internal/infra/telemetry"
)

// StreamServer runs SSE sessions.
type StreamServer interface {
	Serve(ctx context.Context, w stream.EventWriter) error
	Shutdown()
}

type Options struct {
	Addr            string
	Version         string
	ShutdownTimeout time.Duration
	// MCPPath mounts MCPHandler when both are set.
	MCPPath    string
	MCPHandler http.Handler
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = net.JoinHostPort(domain.DefaultServerHost, fmt.Sprint(domain.DefaultServerPort))
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = time.Duration(domain.DefaultServerShutdownTimeoutSeconds) * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type Server struct {
	opts    Options
	streams StreamServer
	router  domain.Router
	logger  *zap.Logger
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

func New(streams StreamServer, router domain.Router, opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{
		opts:    opts,
		streams: streams,
		router:  router,
		logger:  opts.Logger.Named("httpapi"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc(domain.PathSSE, s.handleSSE)
	mux.HandleFunc(domain.PathMCPSSE, s.handleSSE)
	if s.opts.MCPPath != "" && s.opts.MCPHandler != nil {
		mux.Handle(s.opts.MCPPath, s.opts.MCPHandler)
	}
	return withRequestMeta(mux)
}

// Handler returns the full routing tree.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is canceled or the listener fails.
// Open streams are told to close before the HTTP server drains.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		_ = listener.Close()
		return fmt.Errorf("httpapi: server already running on %s", s.httpServer.Addr)
	}
	srv := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.streams.Shutdown)
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", zap.String("addr", srv.Addr))
		errCh <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("httpapi: shutdown: %w", err)
		}
		s.logger.Info("gateway stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the HTTP server if it is running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func withRequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, meta := telemetry.EnsureRequestMeta(r.Context(), r.Header.Get(telemetry.RequestIDHeader))
		w.Header().Set(telemetry.RequestIDHeader, meta.RequestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
