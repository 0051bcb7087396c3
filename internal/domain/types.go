package domain

// Config is the fully resolved gateway configuration.
type Config struct {
	Backend       BackendConfig       `json:"backend"`
	Server        ServerConfig        `json:"server"`
	Catalog       CatalogConfig       `json:"catalog"`
	Stream        StreamConfig        `json:"stream"`
	Tools         []ToolRoute         `json:"tools"`
	MCP           MCPConfig           `json:"mcp"`
	Observability ObservabilityConfig `json:"observability"`
	Log           LogConfig           `json:"log"`
}

type BackendConfig struct {
	URL            string            `json:"url"`
	TimeoutSeconds int               `json:"timeoutSeconds"`
	Headers        map[string]string `json:"headers,omitempty"`
}

type ServerConfig struct {
	Host                   string `json:"host"`
	Port                   int    `json:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdownTimeoutSeconds"`
}

type CatalogConfig struct {
	TTLSeconds   int  `json:"ttlSeconds"`
	StaleOnError bool `json:"staleOnError"`
}

type StreamConfig struct {
	HeartbeatSeconds int `json:"heartbeatSeconds"`
}

// ToolRoute registers one invocable tool. Path is the backend path segment
// the call is forwarded to and defaults to Name.
type ToolRoute struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

type MCPConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type ObservabilityConfig struct {
	ListenAddress string `json:"listenAddress"`
	Metrics       bool   `json:"metrics"`
	Healthz       bool   `json:"healthz"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultToolRoutes returns the stock registry.
func DefaultToolRoutes() []ToolRoute {
	routes := make([]ToolRoute, 0, len(DefaultTools))
	for _, name := range DefaultTools {
		routes = append(routes, ToolRoute{Name: name, Path: name})
	}
	return routes
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			URL:            DefaultBackendURL,
			TimeoutSeconds: DefaultBackendTimeoutSeconds,
		},
		Server: ServerConfig{
			Host:                   DefaultServerHost,
			Port:                   DefaultServerPort,
			ShutdownTimeoutSeconds: DefaultServerShutdownTimeoutSeconds,
		},
		Catalog: CatalogConfig{
			TTLSeconds:   DefaultCatalogTTLSeconds,
			StaleOnError: DefaultCatalogStaleOnError,
		},
		Stream: StreamConfig{HeartbeatSeconds: DefaultHeartbeatSeconds},
		Tools:  DefaultToolRoutes(),
		MCP: MCPConfig{
			Enabled: DefaultMCPEnabled,
			Path:    DefaultMCPPath,
		},
		Observability: ObservabilityConfig{
			ListenAddress: DefaultObservabilityListenAddress,
			Metrics:       DefaultObservabilityMetrics,
			Healthz:       DefaultObservabilityHealthz,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
