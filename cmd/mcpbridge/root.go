package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"mcpbridge/internal/app"
	"mcpbridge/internal/domain"
)

type serveOptions struct {
	configPath string
	envFiles   []string
	host       string
	port       int
	backendURL string
	logLevel   string
	logFormat  string
	mcp        bool
	metrics    bool
	healthz    bool
}

func defaultServeOptions() serveOptions {
	return serveOptions{
		host:       domain.DefaultServerHost,
		port:       domain.DefaultServerPort,
		backendURL: domain.DefaultBackendURL,
		logLevel:   domain.DefaultLogLevel,
		logFormat:  domain.DefaultLogFormat,
		mcp:        domain.DefaultMCPEnabled,
		metrics:    domain.DefaultObservabilityMetrics,
		healthz:    domain.DefaultObservabilityHealthz,
	}
}

func newRootCmd() *cobra.Command {
	opts := defaultServeOptions()

	root := &cobra.Command{
		Use:           "mcpbridge",
		Short:         "SSE gateway in front of an HTTP tool service",
		Version:       fmt.Sprintf("%s (%s)", app.Version, app.Build),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, &opts)
		},
	}

	bindServeFlags(root.PersistentFlags(), &opts)

	root.AddCommand(
		newServeCmd(&opts),
		newValidateCmd(&opts),
	)
	return root
}

func bindServeFlags(flags *pflag.FlagSet, opts *serveOptions) {
	flags.StringVar(&opts.configPath, "config", "", "path to YAML config file (optional)")
	flags.StringArrayVar(&opts.envFiles, "env-file", nil, "dotenv file to load before reading the environment (repeatable, default .env)")
	flags.StringVar(&opts.host, "host", opts.host, "gateway listen host")
	flags.IntVar(&opts.port, "port", opts.port, "gateway listen port (overrides "+domain.EnvServerPort+")")
	flags.StringVar(&opts.backendURL, "backend-url", opts.backendURL, "tool service base URL (overrides "+domain.EnvBackendURL+")")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", opts.logFormat, "log format (json or console)")
	flags.BoolVar(&opts.mcp, "mcp", opts.mcp, "expose the MCP Streamable HTTP endpoint")
	flags.BoolVar(&opts.metrics, "metrics", opts.metrics, "serve /metrics on the observability listener")
	flags.BoolVar(&opts.healthz, "healthz", opts.healthz, "serve /healthz on the observability listener")
}

func newServeCmd(opts *serveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway (default command)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func newValidateCmd(opts *serveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Resolve and validate the configuration without serving",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			_, err = app.New(logger).ValidateConfig(cmd.Context(), serveConfig(cmd.Flags(), opts))
			return err
		},
	}
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	ctx, cancel := signalAwareContext(cmd.Context())
	defer cancel()

	bootstrap, err := zap.NewProduction()
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfig(ctx, serveConfig(cmd.Flags(), opts), bootstrap)
	_ = bootstrap.Sync()
	if err != nil {
		return err
	}

	logger, err := app.BuildLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	err = app.New(logger).Serve(ctx, cfg)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveConfig(flags *pflag.FlagSet, opts *serveOptions) app.ServeConfig {
	return app.ServeConfig{
		ConfigPath: opts.configPath,
		EnvFiles:   opts.envFiles,
		Overrides:  flagOverrides(flags, opts),
	}
}

// flagOverrides keeps only the flags that were set explicitly so that
// defaults never mask file or environment values.
func flagOverrides(flags *pflag.FlagSet, opts *serveOptions) app.ConfigOverrides {
	var overrides app.ConfigOverrides
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "host":
			overrides.Host = opts.host
		case "port":
			overrides.Port = opts.port
		case "backend-url":
			overrides.BackendURL = opts.backendURL
		case "log-level":
			overrides.LogLevel = opts.logLevel
		case "log-format":
			overrides.LogFormat = opts.logFormat
		case "mcp":
			overrides.MCPEnabled = boolPtr(opts.mcp)
		case "metrics":
			overrides.MetricsEnabled = boolPtr(opts.metrics)
		case "healthz":
			overrides.HealthzEnabled = boolPtr(opts.healthz)
		}
	})
	return overrides
}

func boolPtr(v bool) *bool {
	return &v
}
