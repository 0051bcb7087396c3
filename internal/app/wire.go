//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"mcpbridge/internal/domain"
)

func InitializeApplication(ctx context.Context, cfg domain.Config, logging LoggingConfig) (*Application, error) {
	wire.Build(AppSet)
	return nil, nil
}
