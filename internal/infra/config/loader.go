package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mcpbridge/internal/domain"
)

// EnvPrefix namespaces the generic environment overrides, e.g.
// MCPBRIDGE_CATALOG_TTLSECONDS for catalog.ttlSeconds.
const EnvPrefix = "MCPBRIDGE"

type Loader struct {
	logger *zap.Logger
}

type rawConfig struct {
	Backend       rawBackendConfig       `mapstructure:"backend"`
	Server        rawServerConfig        `mapstructure:"server"`
	Catalog       rawCatalogConfig       `mapstructure:"catalog"`
	Stream        rawStreamConfig        `mapstructure:"stream"`
	Tools         []any                  `mapstructure:"tools"`
	MCP           rawMCPConfig           `mapstructure:"mcp"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	Log           rawLogConfig           `mapstructure:"log"`
}

type rawBackendConfig struct {
	URL            string            `mapstructure:"url"`
	TimeoutSeconds int               `mapstructure:"timeoutSeconds"`
	Headers        map[string]string `mapstructure:"headers"`
}

type rawServerConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   string `mapstructure:"port"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdownTimeoutSeconds"`
}

type rawCatalogConfig struct {
	TTLSeconds   int  `mapstructure:"ttlSeconds"`
	StaleOnError bool `mapstructure:"staleOnError"`
}

type rawStreamConfig struct {
	HeartbeatSeconds int `mapstructure:"heartbeatSeconds"`
}

type rawMCPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
	Metrics       bool   `mapstructure:"metrics"`
	Healthz       bool   `mapstructure:"healthz"`
}

type rawLogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The stock variable names win over the prefixed ones.
	_ = v.BindEnv("backend.url", domain.EnvBackendURL, EnvPrefix+"_BACKEND_URL")
	_ = v.BindEnv("server.port", domain.EnvServerPort, EnvPrefix+"_SERVER_PORT")
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", domain.DefaultBackendURL)
	v.SetDefault("backend.timeoutSeconds", domain.DefaultBackendTimeoutSeconds)
	v.SetDefault("server.host", domain.DefaultServerHost)
	v.SetDefault("server.port", strconv.Itoa(domain.DefaultServerPort))
	v.SetDefault("server.shutdownTimeoutSeconds", domain.DefaultServerShutdownTimeoutSeconds)
	v.SetDefault("catalog.ttlSeconds", domain.DefaultCatalogTTLSeconds)
	v.SetDefault("catalog.staleOnError", domain.DefaultCatalogStaleOnError)
	v.SetDefault("stream.heartbeatSeconds", domain.DefaultHeartbeatSeconds)
	v.SetDefault("tools", toolDefaults())
	v.SetDefault("mcp.enabled", domain.DefaultMCPEnabled)
	v.SetDefault("mcp.path", domain.DefaultMCPPath)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metrics", domain.DefaultObservabilityMetrics)
	v.SetDefault("observability.healthz", domain.DefaultObservabilityHealthz)
	v.SetDefault("log.level", domain.DefaultLogLevel)
	v.SetDefault("log.format", domain.DefaultLogFormat)
}

func toolDefaults() []any {
	out := make([]any, 0, len(domain.DefaultTools))
	for _, name := range domain.DefaultTools {
		out = append(out, name)
	}
	return out
}

// Load resolves the configuration from defaults, the optional YAML file at
// path and the environment, in increasing precedence.
func (l *Loader) Load(ctx context.Context, path string) (domain.Config, error) {
	v := newConfigViper()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		expanded, missing, err := expandConfigEnv(data)
		if err != nil {
			return domain.Config{}, err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
		}
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return domain.Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Config{}, err
	}

	cfg, errs := normalizeConfig(raw)
	if len(errs) > 0 {
		return domain.Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalizeConfig(raw rawConfig) (domain.Config, []string) {
	var errs []string

	port, err := strconv.Atoi(strings.TrimSpace(raw.Server.Port))
	if err != nil {
		errs = append(errs, fmt.Sprintf("server.port %q is not a number", raw.Server.Port))
	}

	tools, toolErrs := normalizeTools(raw.Tools)
	errs = append(errs, toolErrs...)

	cfg := domain.Config{
		Backend: domain.BackendConfig{
			URL:            strings.TrimSpace(raw.Backend.URL),
			TimeoutSeconds: raw.Backend.TimeoutSeconds,
			Headers:        raw.Backend.Headers,
		},
		Server: domain.ServerConfig{
			Host:                   strings.TrimSpace(raw.Server.Host),
			Port:                   port,
			ShutdownTimeoutSeconds: raw.Server.ShutdownTimeoutSeconds,
		},
		Catalog: domain.CatalogConfig{
			TTLSeconds:   raw.Catalog.TTLSeconds,
			StaleOnError: raw.Catalog.StaleOnError,
		},
		Stream: domain.StreamConfig{HeartbeatSeconds: raw.Stream.HeartbeatSeconds},
		Tools:  tools,
		MCP: domain.MCPConfig{
			Enabled: raw.MCP.Enabled,
			Path:    strings.TrimSpace(raw.MCP.Path),
		},
		Observability: domain.ObservabilityConfig{
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
			Metrics:       raw.Observability.Metrics,
			Healthz:       raw.Observability.Healthz,
		},
		Log: domain.LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(raw.Log.Level)),
			Format: strings.ToLower(strings.TrimSpace(raw.Log.Format)),
		},
	}

	errs = append(errs, Validate(cfg)...)
	return cfg, errs
}

// normalizeTools accepts either bare names or {name, path} entries.
func normalizeTools(entries []any) ([]domain.ToolRoute, []string) {
	var errs []string
	routes := make([]domain.ToolRoute, 0, len(entries))
	for i, entry := range entries {
		var route domain.ToolRoute
		switch value := entry.(type) {
		case string:
			route.Name = value
		case map[string]any:
			route.Name, _ = value["name"].(string)
			route.Path, _ = value["path"].(string)
		default:
			errs = append(errs, fmt.Sprintf("tools[%d]: expected a name or a {name, path} mapping", i))
			continue
		}
		route.Name = strings.TrimSpace(route.Name)
		route.Path = strings.Trim(strings.TrimSpace(route.Path), "/")
		if route.Path == "" {
			route.Path = route.Name
		}
		routes = append(routes, route)
	}
	return routes, errs
}

// Validate reports every problem with cfg rather than stopping at the first.
func Validate(cfg domain.Config) []string {
	var errs []string

	if parsed, err := url.Parse(cfg.Backend.URL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Sprintf("backend.url %q must be an absolute http(s) URL", cfg.Backend.URL))
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		errs = append(errs, "backend.timeoutSeconds must be > 0")
	}
	for key := range cfg.Backend.Headers {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, "backend.headers contains an empty key")
		}
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", cfg.Server.Port))
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, "server.shutdownTimeoutSeconds must be > 0")
	}
	if cfg.Catalog.TTLSeconds <= 0 {
		errs = append(errs, "catalog.ttlSeconds must be > 0")
	}
	if cfg.Stream.HeartbeatSeconds <= 0 {
		errs = append(errs, "stream.heartbeatSeconds must be > 0")
	}

	seen := make(map[string]struct{}, len(cfg.Tools))
	for i, route := range cfg.Tools {
		if route.Name == "" {
			errs = append(errs, fmt.Sprintf("tools[%d]: name is required", i))
			continue
		}
		if _, ok := seen[route.Name]; ok {
			errs = append(errs, fmt.Sprintf("tools[%d]: duplicate name %q", i, route.Name))
		}
		seen[route.Name] = struct{}{}
	}

	if cfg.MCP.Enabled {
		switch {
		case !strings.HasPrefix(cfg.MCP.Path, "/"):
			errs = append(errs, fmt.Sprintf("mcp.path %q must start with /", cfg.MCP.Path))
		case cfg.MCP.Path == "/" || cfg.MCP.Path == domain.PathSSE || cfg.MCP.Path == domain.PathMCPSSE:
			errs = append(errs, fmt.Sprintf("mcp.path %q collides with a gateway endpoint", cfg.MCP.Path))
		}
	}
	if (cfg.Observability.Metrics || cfg.Observability.Healthz) && cfg.Observability.ListenAddress == "" {
		errs = append(errs, "observability.listenAddress is required when metrics or healthz is enabled")
	}

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid", cfg.Log.Level))
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		errs = append(errs, fmt.Sprintf("log.format %q must be json or console", cfg.Log.Format))
	}
	return errs
}
