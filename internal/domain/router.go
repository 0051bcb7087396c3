package domain

import (
	"context"
	"encoding/json"
)

// Router dispatches a tool invocation and returns the backend document verbatim.
type Router interface {
	Route(ctx context.Context, tool string, arguments json.RawMessage) (json.RawMessage, error)
}

// ToolInvoker performs the backend call behind a registered tool.
type ToolInvoker interface {
	Invoke(ctx context.Context, path string, arguments json.RawMessage) (json.RawMessage, error)
}

// ToolRegistry resolves invocable tool names. Implementations are immutable.
type ToolRegistry interface {
	Lookup(name string) (ToolRoute, bool)
	Names() []string
}
