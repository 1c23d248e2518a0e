package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/timmarsh1987/XMCVisualiser/application/commands"
	"github.com/timmarsh1987/XMCVisualiser/application/commands/bus"
	commandhandlers "github.com/timmarsh1987/XMCVisualiser/application/commands/handlers"
	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/application/queries"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/application/services"
	domainconfig "github.com/timmarsh1987/XMCVisualiser/domain/config"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/config"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/sitecore"
	"github.com/timmarsh1987/XMCVisualiser/pkg/auth"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// ProvideLogger creates the logger; production encoding in production,
// development encoding otherwise, level from the configuration
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// ProvideDomainConfig merges the environment profile with the configured limits
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := domainconfig.LoadDomainConfig(cfg.Environment)

	dc.DefaultLanguage = cfg.DefaultLanguage
	dc.FetchTimeout = cfg.GraphQLTimeout
	dc.MaxExplorerRoutes = cfg.ExplorerMaxRoutes
	dc.ExplorerConcurrency = cfg.ExplorerConcurrency
	dc.ExplorerCacheTTL = cfg.ExplorerCacheTTL
	dc.EnableItemInfo = cfg.EnableItemInfo

	if err := dc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain configuration: %w", err)
	}
	return dc, nil
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(metricsNamespace(cfg.MetricsNamespace))
}

// ProvideCloudWatch creates the CloudWatch publisher. Publishing is enabled
// only in Lambda with metrics turned on; otherwise datums are dropped on Flush.
func ProvideCloudWatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.CloudWatchMetrics, error) {
	namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
	if !cfg.EnableMetrics || !cfg.IsLambda {
		return observability.NewCloudWatchMetrics(namespace, nil, logger), nil
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return observability.NewCloudWatchMetrics(namespace, awscloudwatch.NewFromConfig(awsCfg), logger), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideMetrics fans every metric out to Prometheus and CloudWatch
func ProvideMetrics(collector *observability.Collector, cw *observability.CloudWatchMetrics) ports.Metrics {
	return observability.Fanout{collector, cw}
}

// ProvideTracerProvider installs tracing when enabled
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.EnableTracing,
		ServiceName: "xmc-visualiser",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRate:  cfg.TraceSampleRate,
	})
}

// ProvideTracer returns the service tracer
func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	return tp.Tracer()
}

// ProvideTenantSource reads tenants from the tenants file when one is set,
// otherwise from the configured context ids or the development context
func ProvideTenantSource(cfg *config.Config, dc *domainconfig.DomainConfig) commandhandlers.TenantSource {
	if cfg.TenantsFile != "" {
		return config.TenantsFile{Path: cfg.TenantsFile}
	}
	return config.StaticTenants{App: config.StaticApplication(cfg, dc.UseDevelopmentCtx)}
}

// ProvideTenantRegistry loads the initial tenants into the registry
func ProvideTenantRegistry(ctx context.Context, source commandhandlers.TenantSource, logger *zap.Logger) (*services.TenantRegistry, error) {
	app, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenants: %w", err)
	}
	registry := services.NewTenantRegistry(app, logger.Named("tenants"))
	logger.Info("Tenants loaded", zap.Int("tenants", len(app.ResourceAccess)))
	return registry, nil
}

// Fetchers holds the per-environment fetchers
type Fetchers struct {
	Preview   *sitecore.Fetcher
	Published *sitecore.Fetcher
}

// ProvideFetchers creates one client and fetcher per environment. Each client
// owns its circuit breaker.
func ProvideFetchers(cfg *config.Config, metrics ports.Metrics, logger *zap.Logger) Fetchers {
	opts := sitecore.ClientOptions{
		Timeout:           cfg.GraphQLTimeout,
		BreakerFailures:   uint32(cfg.BreakerFailures),
		BreakerOpenPeriod: cfg.BreakerOpenPeriod,
		Metrics:           metrics,
		Logger:            logger.Named("sitecore"),
	}

	preview := sitecore.NewClient(layout.EnvironmentPreview, cfg.PreviewEndpoint, opts)
	published := sitecore.NewClient(layout.EnvironmentPublished, cfg.LiveEndpoint, opts)

	return Fetchers{
		Preview:   sitecore.NewFetcher(preview, logger.Named("preview")),
		Published: sitecore.NewFetcher(published, logger.Named("published")),
	}
}

// ProvideBootstrap creates the readiness bootstrap. It probes both endpoints
// with the active context and restarts whenever the tenants change. The
// development context carries mock ids, so it is reported ready unprobed.
func ProvideBootstrap(cfg *config.Config, dc *domainconfig.DomainConfig, fetchers Fetchers, registry *services.TenantRegistry, logger *zap.Logger) *sitecore.Bootstrap {
	probe := cfg.TenantsFile != "" || cfg.PreviewContextID != "" || cfg.LiveContextID != "" || !dc.UseDevelopmentCtx

	b := sitecore.NewBootstrap(func(ctx context.Context) error {
		if !probe {
			return nil
		}
		return probeEndpoints(ctx, fetchers, registry.Resolve())
	}, sitecore.BootstrapOptions{
		MaxAttempts: dc.BootstrapAttempts,
		Delay:       dc.BootstrapDelay,
		Logger:      logger.Named("bootstrap"),
	})

	registry.OnChange(func(*tenant.ApplicationContext, tenant.ContextIDs) {
		b.Reset()
	})
	return b
}

func probeEndpoints(ctx context.Context, fetchers Fetchers, ids tenant.ContextIDs) error {
	if ids.IsZero() {
		return fmt.Errorf("no context identifiers configured")
	}
	if ids.Preview != "" {
		if err := fetchers.Preview.Probe(ctx, ids.Preview); err != nil {
			return err
		}
	}
	if ids.Live != "" {
		if err := fetchers.Published.Probe(ctx, ids.Live); err != nil {
			return err
		}
	}
	return nil
}

// ProvideInMemoryCache creates the cache shared by the explorer
func ProvideInMemoryCache(metrics ports.Metrics) *InMemoryCache {
	return NewInMemoryCache("explorer", metrics)
}

// ProvideComparisonService creates the orchestrator
func ProvideComparisonService(
	dc *domainconfig.DomainConfig,
	fetchers Fetchers,
	registry *services.TenantRegistry,
	tracer trace.Tracer,
	metrics ports.Metrics,
	logger *zap.Logger,
) *services.ComparisonService {
	var itemInfo ports.ItemInfoFetcher
	if dc.EnableItemInfo {
		itemInfo = fetchers.Preview
	}
	return services.NewComparisonService(
		fetchers.Preview,
		fetchers.Published,
		itemInfo,
		registry,
		tracer,
		metrics,
		logger.Named("comparison"),
	)
}

// ProvideExplorerService creates the page explorer
func ProvideExplorerService(
	dc *domainconfig.DomainConfig,
	fetchers Fetchers,
	registry *services.TenantRegistry,
	cache *InMemoryCache,
	tracer trace.Tracer,
	logger *zap.Logger,
) *services.ExplorerService {
	var itemInfo ports.ItemInfoFetcher
	if dc.EnableItemInfo {
		itemInfo = fetchers.Preview
	}
	return services.NewExplorerService(
		fetchers.Preview,
		itemInfo,
		registry,
		cache,
		services.ExplorerOptions{
			MaxRoutes:   dc.MaxExplorerRoutes,
			Concurrency: dc.ExplorerConcurrency,
			CacheTTL:    dc.ExplorerCacheTTL,
		},
		tracer,
		logger.Named("explorer"),
	)
}

// ProvideQueryBus creates the query bus with every query handler registered
func ProvideQueryBus(
	comparison *services.ComparisonService,
	explorerService *services.ExplorerService,
	registry *services.TenantRegistry,
	metrics ports.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.NewLoggingMiddleware(logger.Named("queries")),
		querybus.NewMetricsMiddleware(metrics),
	)

	handlers := &queries.Handlers{
		Compare:  queries.NewCompareLayoutsHandler(comparison, registry),
		Explorer: queries.NewExplorerHandler(explorerService, registry),
		Tenants:  queries.NewListTenantsHandler(registry),
	}
	if err := handlers.Register(queryBus); err != nil {
		return nil, fmt.Errorf("failed to register query handlers: %w", err)
	}
	return queryBus, nil
}

// ProvideCommandBus creates the command bus with the tenant handlers registered
func ProvideCommandBus(
	registry *services.TenantRegistry,
	source commandhandlers.TenantSource,
	metrics ports.Metrics,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.RecoveryMiddleware(logger.Named("commands")),
		bus.LoggingMiddleware(logger.Named("commands")),
	)

	handlers := commandhandlers.NewTenantHandlers(registry, source, metrics, logger.Named("commands"))
	if err := handlers.Register(commandBus); err != nil {
		return nil, fmt.Errorf("failed to register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideTenantsWatcher starts watching the tenants file. It returns nil when
// there is no file or watching is disabled.
func ProvideTenantsWatcher(cfg *config.Config, commandBus *bus.CommandBus, logger *zap.Logger) (*config.TenantsWatcher, error) {
	if cfg.TenantsFile == "" || !cfg.WatchTenants || cfg.IsLambda {
		return nil, nil
	}

	watcher, err := config.NewTenantsWatcher(cfg.TenantsFile, config.DefaultDebounce, logger.Named("watcher"))
	if err != nil {
		return nil, err
	}
	// Reloads go through the command bus to record tenant_reloads
	watcher.OnChange(func(*tenant.ApplicationContext) {
		cmd := commands.ReloadTenantsCommand{Reason: "tenants file changed"}
		if err := commandBus.Send(context.Background(), cmd); err != nil {
			logger.Error("Tenant reload failed", zap.Error(err))
		}
	})
	watcher.Start()
	return watcher, nil
}

// ProvideRateLimiter creates the per-IP token bucket limiter. It returns nil
// when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *auth.TokenBucketLimiter {
	if cfg.RateLimitRequests <= 0 || cfg.RateLimitWindow <= 0 {
		return nil
	}
	refill := cfg.RateLimitWindow / time.Duration(cfg.RateLimitRequests)
	if refill <= 0 {
		refill = time.Millisecond
	}
	return auth.NewTokenBucketLimiter(cfg.RateLimitRequests, refill)
}

// ProvideJWTValidator creates the bearer token validator. It returns nil when
// no secret is configured and the API is open.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if !cfg.AuthEnabled() {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
	})
}

// metricsNamespace turns a display namespace into a valid Prometheus prefix
func metricsNamespace(ns string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(ns) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
