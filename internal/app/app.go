package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/config"
)

// ServeConfig locates the configuration sources for one run.
type ServeConfig struct {
	ConfigPath string
	EnvFiles   []string
	Overrides  ConfigOverrides
}

// ConfigOverrides holds values set explicitly on the command line.
// Zero values and nil pointers leave the loaded setting alone.
type ConfigOverrides struct {
	Host           string
	Port           int
	BackendURL     string
	LogLevel       string
	LogFormat      string
	MCPEnabled     *bool
	MetricsEnabled *bool
	HealthzEnabled *bool
}

func (o ConfigOverrides) apply(cfg *domain.Config) {
	if o.Host != "" {
		cfg.Server.Host = o.Host
	}
	if o.Port != 0 {
		cfg.Server.Port = o.Port
	}
	if o.BackendURL != "" {
		cfg.Backend.URL = strings.TrimSpace(o.BackendURL)
	}
	if o.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(o.LogLevel)
	}
	if o.LogFormat != "" {
		cfg.Log.Format = strings.ToLower(o.LogFormat)
	}
	if o.MCPEnabled != nil {
		cfg.MCP.Enabled = *o.MCPEnabled
	}
	if o.MetricsEnabled != nil {
		cfg.Observability.Metrics = *o.MetricsEnabled
	}
	if o.HealthzEnabled != nil {
		cfg.Observability.Healthz = *o.HealthzEnabled
	}
}

// LoadConfig loads .env files, then the config file and environment, then
// applies command-line overrides and validates the result.
func LoadConfig(ctx context.Context, serve ServeConfig, logger *zap.Logger) (domain.Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loaded, err := config.LoadDotEnv(serve.EnvFiles...)
	if err != nil {
		return domain.Config{}, err
	}
	if len(loaded) > 0 {
		logger.Debug("environment files loaded", zap.Strings("files", loaded))
	}

	cfg, err := config.NewLoader(logger).Load(ctx, serve.ConfigPath)
	if err != nil {
		return domain.Config{}, err
	}
	serve.Overrides.apply(&cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return domain.Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

// App runs the gateway for an already resolved configuration.
type App struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Serve builds the application graph and blocks until ctx ends.
func (a *App) Serve(ctx context.Context, cfg domain.Config) error {
	application, err := InitializeApplication(ctx, cfg, LoggingConfig{Logger: a.logger})
	if err != nil {
		return err
	}
	return application.Run()
}

// ValidateConfig loads the configuration without starting anything.
func (a *App) ValidateConfig(ctx context.Context, serve ServeConfig) (domain.Config, error) {
	cfg, err := LoadConfig(ctx, serve, a.logger)
	if err != nil {
		return domain.Config{}, err
	}
	a.logger.Info("configuration valid",
		zap.String("config", serve.ConfigPath),
		zap.String("backend", cfg.Backend.URL),
		zap.Int("tools", len(cfg.Tools)),
	)
	return cfg, nil
}
