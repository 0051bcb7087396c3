// Package registry holds the static set of invocable tools.
package registry

import (
	"fmt"
	"strings"

	"mcpbridge/internal/domain"
)

// Registry maps tool names to backend routes. It is built once at startup
// and never mutated, so it is safe for concurrent use without locking.
type Registry struct {
	routes map[string]domain.ToolRoute
	names  []string
}

func New(routes []domain.ToolRoute) (*Registry, error) {
	r := &Registry{
		routes: make(map[string]domain.ToolRoute, len(routes)),
		names:  make([]string, 0, len(routes)),
	}
	for i, route := range routes {
		name := strings.TrimSpace(route.Name)
		if name == "" {
			return nil, fmt.Errorf("tool route %d: name is required", i)
		}
		if _, ok := r.routes[name]; ok {
			return nil, fmt.Errorf("tool route %d: duplicate name %q", i, name)
		}
		path := strings.Trim(strings.TrimSpace(route.Path), "/")
		if path == "" {
			path = name
		}
		r.routes[name] = domain.ToolRoute{Name: name, Path: path}
		r.names = append(r.names, name)
	}
	return r, nil
}

// Default returns the stock registry.
func Default() *Registry {
	r, err := New(domain.DefaultToolRoutes())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(name string) (domain.ToolRoute, bool) {
	route, ok := r.routes[name]
	return route, ok
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.routes[name]
	return ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Len() int {
	return len(r.names)
}

var _ domain.ToolRegistry = (*Registry)(nil)
