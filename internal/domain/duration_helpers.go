package domain

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Timeout returns the per-request backend timeout, defaulting when unset.
func (c BackendConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultBackendTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	seconds := c.ShutdownTimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultServerShutdownTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// Address joins host and port into a listen address.
func (c ServerConfig) Address() string {
	port := c.Port
	if port <= 0 {
		port = DefaultServerPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// TTL returns the catalog time-to-live.
func (c CatalogConfig) TTL() time.Duration {
	seconds := c.TTLSeconds
	if seconds <= 0 {
		seconds = DefaultCatalogTTLSeconds
	}
	return time.Duration(seconds) * time.Second
}

// HeartbeatInterval returns the delay between heartbeat events.
func (c StreamConfig) HeartbeatInterval() time.Duration {
	seconds := c.HeartbeatSeconds
	if seconds <= 0 {
		seconds = DefaultHeartbeatSeconds
	}
	return time.Duration(seconds) * time.Second
}

// String renders the route for logs.
func (r ToolRoute) String() string {
	if r.Path == "" || r.Path == r.Name {
		return r.Name
	}
	return fmt.Sprintf("%s->%s", r.Name, r.Path)
}
