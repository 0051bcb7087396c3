package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mcpbridge/internal/domain"
)

// LoggingConfig configures logging wiring.
type LoggingConfig struct {
	Logger *zap.Logger
}

// NewLogger returns the configured logger, or a no-op logger.
func NewLogger(cfg LoggingConfig) *zap.Logger {
	if cfg.Logger == nil {
		return zap.NewNop()
	}
	return cfg.Logger
}

// BuildLogger builds the process logger from the log settings.
// Format "console" selects the development encoder; anything else is JSON.
func BuildLogger(cfg domain.LogConfig) (*zap.Logger, error) {
	levelName := strings.TrimSpace(cfg.Level)
	if levelName == "" {
		levelName = domain.DefaultLogLevel
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zcfg zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	case "", "json":
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "ts"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("log format %q must be json or console", cfg.Format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
