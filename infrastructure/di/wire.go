//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/timmarsh1987/XMCVisualiser/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideCollector,
	ProvideCloudWatch,
	ProvideMetrics,
	ProvideTracerProvider,
	ProvideTracer,
	ProvideTenantSource,
	ProvideTenantRegistry,
	ProvideFetchers,
	ProvideBootstrap,
	ProvideInMemoryCache,
	ProvideComparisonService,
	ProvideExplorerService,
	ProvideQueryBus,
	ProvideCommandBus,
	ProvideTenantsWatcher,
	ProvideRateLimiter,
	ProvideJWTValidator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
