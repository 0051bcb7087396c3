package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/stream"
	"mcpbridge/internal/infra/telemetry"
)

const maxInvokeBody = 1 << 20

type healthResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Version   string          `json:"version"`
	Endpoints healthEndpoints `json:"endpoints"`
}

type healthEndpoints struct {
	SSE    string `json:"sse"`
	MCPSSE string `json:"mcp_sse"`
}

type invokeRequest struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: "MCP SSE gateway is running",
		Version: s.opts.Version,
		Endpoints: healthEndpoints{
			SSE:    domain.PathSSE,
			MCPSSE: domain.PathMCPSSE,
		},
	})
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		s.handlePreflight(w)
	case http.MethodGet:
		s.handleStream(w, r)
	case http.MethodPost:
		s.handleInvoke(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: fmt.Sprintf("method %s not allowed", r.Method)})
	}
}

func (s *Server) handlePreflight(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Max-Age", "3600")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.LoggerWithRequest(r.Context(), s.logger)
	if _, ok := w.(http.Flusher); !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming not supported"})
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	if err := s.streams.Serve(r.Context(), stream.NewWriter(w)); err != nil {
		if errors.Is(err, domain.ErrStreamTransport) {
			logger.Debug("stream peer gone", zap.Error(err))
			return
		}
		logger.Warn("stream ended with error", zap.Error(err))
	}
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInvokeBody))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("read request: %v", err)})
		return
	}
	var req invokeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	result, err := s.router.Route(r.Context(), req.Tool, req.Params)
	if err != nil {
		status, msg := invokeError(req.Tool, err)
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bytes.TrimSpace(result))
}

// invokeError maps router failures to the status codes clients expect:
// unknown tools are 404, everything else is 500.
func invokeError(tool string, err error) (int, string) {
	if code, ok := domain.CodeFrom(err); ok && code == domain.CodeNotFound {
		return http.StatusNotFound, fmt.Sprintf("Tool %s not found", tool)
	}
	return http.StatusInternalServerError, err.Error()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
