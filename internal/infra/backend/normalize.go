package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"mcpbridge/internal/domain"
)

// NormalizeTools converts a backend /tools payload into ordered descriptors.
//
// Accepted shapes:
//
//	{"tools": {"<name>": {"description": ..., "inputSchema": ...}}}
//	{"tools": [{"name": ..., "description": ..., "inputSchema": ...}]}
//	[{"name": ...}, ...]   (items passed through verbatim)
//
// Anything else yields an empty list. The returned issues describe dropped or
// unexpected input and never abort normalization.
func NormalizeTools(body []byte) ([]domain.ToolDescriptor, []string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []domain.ToolDescriptor{}, []string{"empty body"}
	}

	switch trimmed[0] {
	case '[':
		return normalizeArray(trimmed)
	case '{':
		return normalizeEnvelope(trimmed)
	default:
		if bytes.Equal(trimmed, []byte("null")) {
			return []domain.ToolDescriptor{}, nil
		}
		return []domain.ToolDescriptor{}, []string{"unexpected payload type"}
	}
}

func normalizeEnvelope(body []byte) ([]domain.ToolDescriptor, []string) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return []domain.ToolDescriptor{}, []string{fmt.Sprintf("decode object: %v", err)}
	}
	tools, ok := envelope["tools"]
	if !ok {
		return []domain.ToolDescriptor{}, []string{`object has no "tools" key`}
	}
	tools = bytes.TrimSpace(tools)
	if len(tools) == 0 {
		return []domain.ToolDescriptor{}, nil
	}
	switch tools[0] {
	case '{':
		return normalizeKeyed(tools)
	case '[':
		return normalizeListed(tools)
	default:
		if bytes.Equal(tools, []byte("null")) {
			return []domain.ToolDescriptor{}, nil
		}
		return []domain.ToolDescriptor{}, []string{`"tools" is neither object nor array`}
	}
}

type toolBody struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Parameters  json.RawMessage `json:"parameters"`
}

func (b toolBody) description() string {
	if b.Description == nil {
		return ""
	}
	return *b.Description
}

func (b toolBody) schema() json.RawMessage {
	if len(b.InputSchema) > 0 && !isNull(b.InputSchema) {
		return b.InputSchema
	}
	if len(b.Parameters) > 0 && !isNull(b.Parameters) {
		return b.Parameters
	}
	return nil
}

// normalizeKeyed walks the object token by token so the backend's key order
// survives.
func normalizeKeyed(raw json.RawMessage) ([]domain.ToolDescriptor, []string) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return []domain.ToolDescriptor{}, []string{fmt.Sprintf("decode tools: %v", err)}
	}

	var (
		tools  = []domain.ToolDescriptor{}
		issues []string
		seen   = make(map[string]struct{})
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			issues = append(issues, fmt.Sprintf("decode tools: %v", err))
			return tools, issues
		}
		name, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			issues = append(issues, fmt.Sprintf("decode tool %q: %v", name, err))
			return tools, issues
		}
		if _, dup := seen[name]; dup {
			issues = append(issues, fmt.Sprintf("duplicate tool %q dropped", name))
			continue
		}

		var body toolBody
		if err := json.Unmarshal(value, &body); err != nil {
			// Non-object values still name a tool; they just carry no metadata.
			body = toolBody{}
		}
		seen[name] = struct{}{}
		tools = append(tools, domain.NewToolDescriptor(name, body.description(), body.schema()))
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		issues = append(issues, fmt.Sprintf("decode tools: %v", err))
	}
	return tools, issues
}

func normalizeListed(raw json.RawMessage) ([]domain.ToolDescriptor, []string) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []domain.ToolDescriptor{}, []string{fmt.Sprintf("decode tools: %v", err)}
	}
	tools := make([]domain.ToolDescriptor, 0, len(items))
	var issues []string
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		body, ok := decodeNamed(item)
		if !ok {
			issues = append(issues, fmt.Sprintf("tools[%d]: missing name", i))
			continue
		}
		if _, dup := seen[body.Name]; dup {
			issues = append(issues, fmt.Sprintf("tools[%d]: duplicate tool %q dropped", i, body.Name))
			continue
		}
		seen[body.Name] = struct{}{}
		tools = append(tools, domain.NewToolDescriptor(body.Name, body.description(), body.schema()))
	}
	return tools, issues
}

func normalizeArray(raw []byte) ([]domain.ToolDescriptor, []string) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []domain.ToolDescriptor{}, []string{fmt.Sprintf("decode array: %v", err)}
	}
	tools := make([]domain.ToolDescriptor, 0, len(items))
	var issues []string
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		body, ok := decodeNamed(item)
		if !ok {
			issues = append(issues, fmt.Sprintf("[%d]: missing name", i))
			continue
		}
		if _, dup := seen[body.Name]; dup {
			issues = append(issues, fmt.Sprintf("[%d]: duplicate tool %q dropped", i, body.Name))
			continue
		}
		seen[body.Name] = struct{}{}
		tools = append(tools, domain.PassthroughToolDescriptor(body.Name, body.description(), body.schema(), item))
	}
	return tools, issues
}

func decodeNamed(item json.RawMessage) (toolBody, bool) {
	var body toolBody
	if err := json.Unmarshal(item, &body); err != nil {
		return toolBody{}, false
	}
	if body.Name == "" {
		return toolBody{}, false
	}
	return body, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
