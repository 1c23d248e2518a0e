// Package di wires the service together.
package di

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/application/commands/bus"
	commandhandlers "github.com/timmarsh1987/XMCVisualiser/application/commands/handlers"
	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/application/services"
	domainconfig "github.com/timmarsh1987/XMCVisualiser/domain/config"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/config"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/sitecore"
	"github.com/timmarsh1987/XMCVisualiser/interfaces/http/rest"
	"github.com/timmarsh1987/XMCVisualiser/pkg/auth"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger

	Collector  *observability.Collector
	CloudWatch *observability.CloudWatchMetrics
	Metrics    ports.Metrics
	Tracing    *observability.TracerProvider
	Tracer     trace.Tracer

	TenantSource commandhandlers.TenantSource
	Registry     *services.TenantRegistry
	Fetchers     Fetchers
	Bootstrap    *sitecore.Bootstrap
	Cache        *InMemoryCache
	Comparison   *services.ComparisonService
	Explorer     *services.ExplorerService

	QueryBus   *querybus.QueryBus
	CommandBus *bus.CommandBus

	// Optional; nil when disabled
	Watcher     *config.TenantsWatcher
	RateLimiter *auth.TokenBucketLimiter
	JWT         *auth.JWTValidator
}

// Router builds the HTTP router from the container's configuration
func (c *Container) Router() *rest.Router {
	opts := rest.RouterOptions{
		EnableCORS:     c.Config.EnableCORS,
		AllowedOrigins: c.Config.CORSAllowedOrigins,
		RateLimit:      c.Config.RateLimitRequests,
		RateWindow:     c.Config.RateLimitWindow,
		JWT:            c.JWT,
		Metrics:        c.Collector,
		Readiness:      c.Bootstrap,
		DefaultSite:    c.Config.DefaultSite,
		Debug:          c.Config.Environment == "development",
	}
	if c.RateLimiter != nil {
		opts.RateLimiter = c.RateLimiter
	}
	return rest.NewRouter(c.CommandBus, c.QueryBus, c.Logger, opts)
}

// Shutdown stops background work and flushes telemetry
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.RateLimiter != nil {
		c.RateLimiter.Stop()
	}
	if c.Cache != nil {
		c.Cache.Stop()
	}

	var errs []error
	if c.CloudWatch != nil {
		if err := c.CloudWatch.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush metrics: %w", err))
		}
	}
	if c.Tracing != nil {
		if err := c.Tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return stderrors.Join(errs...)
}
