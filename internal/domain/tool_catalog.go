package domain

import (
	"encoding/json"
	"time"
)

// ToolDescriptor describes one backend tool. Descriptors are immutable once
// fetched; a refresh replaces the whole catalog.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage

	// raw holds the backend's own encoding when the item was passed through
	// verbatim (bare array responses).
	raw json.RawMessage
}

// NewToolDescriptor builds a descriptor in the canonical
// {name, description, parameters} shape.
func NewToolDescriptor(name, description string, parameters json.RawMessage) ToolDescriptor {
	if len(parameters) == 0 {
		parameters = json.RawMessage(`{}`)
	}
	return ToolDescriptor{
		Name:        name,
		Description: description,
		Parameters:  parameters,
	}
}

// PassthroughToolDescriptor keeps raw as the wire encoding of the descriptor.
func PassthroughToolDescriptor(name, description string, parameters, raw json.RawMessage) ToolDescriptor {
	return ToolDescriptor{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		raw:         append(json.RawMessage(nil), raw...),
	}
}

type toolDescriptorWire struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

func (d ToolDescriptor) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	params := d.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	return json.Marshal(toolDescriptorWire{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  params,
	})
}

func (d *ToolDescriptor) UnmarshalJSON(data []byte) error {
	var wire toolDescriptorWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*d = NewToolDescriptor(wire.Name, wire.Description, wire.Parameters)
	return nil
}

// ToolCatalog is one successful fetch of the backend tool list.
type ToolCatalog struct {
	Tools     []ToolDescriptor
	FetchedAt time.Time
}

// IsZero reports whether the catalog was never fetched.
func (c ToolCatalog) IsZero() bool {
	return c.FetchedAt.IsZero() && len(c.Tools) == 0
}

// Names returns tool names in catalog order.
func (c ToolCatalog) Names() []string {
	names := make([]string, 0, len(c.Tools))
	for _, tool := range c.Tools {
		names = append(names, tool.Name)
	}
	return names
}

// Lookup finds a tool by name.
func (c ToolCatalog) Lookup(name string) (ToolDescriptor, bool) {
	for _, tool := range c.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolDescriptor{}, false
}

// Age returns how long ago the catalog was fetched.
func (c ToolCatalog) Age(now time.Time) time.Duration {
	return now.Sub(c.FetchedAt)
}

// ToolsEvent is the payload of the stream's tools event.
type ToolsEvent struct {
	Type  string           `json:"type"`
	Tools []ToolDescriptor `json:"tools"`
}

// Event returns the tools event payload for the catalog.
func (c ToolCatalog) Event() ToolsEvent {
	tools := c.Tools
	if tools == nil {
		tools = []ToolDescriptor{}
	}
	return ToolsEvent{Type: EventTools, Tools: tools}
}
