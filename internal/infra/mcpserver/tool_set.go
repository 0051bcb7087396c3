package mcpserver

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/hashutil"
	"mcpbridge/internal/infra/telemetry"
)

// toolSet mirrors a catalog onto an MCP server, adding, replacing and
// removing tools so the server lists exactly the last applied snapshot.
type toolSet struct {
	server     *mcp.Server
	handler    func(name string) mcp.ToolHandler
	logger     *zap.Logger
	mu         sync.Mutex
	etag       string
	registered map[string]struct{}
}

func newToolSet(server *mcp.Server, handler func(name string) mcp.ToolHandler, logger *zap.Logger) *toolSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &toolSet{
		server:     server,
		handler:    handler,
		logger:     logger.Named("tool_set"),
		registered: make(map[string]struct{}),
	}
}

// Apply registers tools and returns false when an identical list was the
// last one applied.
func (s *toolSet) Apply(tools []domain.ToolDescriptor) bool {
	etag := hashutil.ToolsETag(s.logger, tools)

	s.mu.Lock()
	defer s.mu.Unlock()

	if etag != "" && etag == s.etag {
		return false
	}

	next := make(map[string]struct{}, len(tools))
	for _, descriptor := range tools {
		if descriptor.Name == "" {
			continue
		}
		tool := &mcp.Tool{
			Name:        descriptor.Name,
			Description: descriptor.Description,
			InputSchema: objectSchema(descriptor.Parameters, s.logger.With(telemetry.ToolField(descriptor.Name))),
		}
		s.server.AddTool(tool, s.handler(descriptor.Name))
		next[descriptor.Name] = struct{}{}
	}

	var remove []string
	for name := range s.registered {
		if _, ok := next[name]; !ok {
			remove = append(remove, name)
		}
	}
	if len(remove) > 0 {
		s.server.RemoveTools(remove...)
	}

	s.registered = next
	s.etag = etag
	return true
}

func (s *toolSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.registered))
	for name := range s.registered {
		names = append(names, name)
	}
	return names
}

// objectSchema decodes a backend parameter schema for MCP, which only
// accepts object input schemas. Anything unusable becomes an open object.
func objectSchema(raw json.RawMessage, logger *zap.Logger) *jsonschema.Schema {
	schema := &jsonschema.Schema{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, schema); err != nil {
			logger.Warn("parameter schema not usable, exposing an open object", zap.Error(err))
			schema = &jsonschema.Schema{}
		}
	}
	if schema.Type != "object" {
		if schema.Type != "" || len(schema.Types) > 0 {
			logger.Debug("coercing parameter schema to object", zap.String("type", schema.Type), zap.Strings("types", schema.Types))
		}
		schema.Type = "object"
		schema.Types = nil
	}
	return schema
}
