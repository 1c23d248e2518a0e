package rest

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/application/commands/bus"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/sitecore"
	"github.com/timmarsh1987/XMCVisualiser/interfaces/http/rest/handlers"
	"github.com/timmarsh1987/XMCVisualiser/interfaces/http/rest/middleware"
	"github.com/timmarsh1987/XMCVisualiser/pkg/auth"
	"github.com/timmarsh1987/XMCVisualiser/pkg/common"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// ReadinessChecker reports whether the upstream endpoints are usable
type ReadinessChecker interface {
	Initialize(ctx context.Context) sitecore.InitResult
}

// RouterOptions holds the optional parts of the HTTP edge. Nil fields
// switch the matching feature off.
type RouterOptions struct {
	EnableCORS     bool
	AllowedOrigins []string

	RateLimiter auth.RateLimiter
	RateLimit   int
	RateWindow  time.Duration

	JWT       *auth.JWTValidator
	Metrics   *observability.Collector
	Readiness ReadinessChecker

	DefaultSite string
	Debug       bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
	opts       RouterOptions
	errors     *errors.ErrorHandler
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
	opts RouterOptions,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
		opts:       opts,
		errors:     errors.NewErrorHandler(logger, opts.Debug),
	}
}

// ReadinessResponse is the body of GET /ready
type ReadinessResponse struct {
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.Metrics != nil {
		router.Use(middleware.Metrics(rt.opts.Metrics))
	}

	if rt.opts.EnableCORS {
		origins := rt.opts.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: !slices.Contains(origins, "*"),
			MaxAge:           300,
		}))
	}
	router.Use(rt.errors.Middleware)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(rt.opts.RateLimiter, rt.opts.RateLimit, rt.opts.RateWindow, rt.errors))
		}
		if rt.opts.JWT != nil {
			r.Use(middleware.Authenticate(rt.opts.JWT, rt.errors, rt.logger))
		}

		compareHandler := handlers.NewCompareHandler(rt.queryBus, rt.errors, rt.opts.DefaultSite, rt.logger)
		r.Get("/compare", compareHandler.CompareQuery)
		r.Post("/compare", compareHandler.CompareBody)

		r.Route("/tenants", func(r chi.Router) {
			tenantHandler := handlers.NewTenantHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
			r.Get("/", tenantHandler.ListTenants)
			r.Put("/selected", tenantHandler.SelectTenant)
			r.Delete("/selected", tenantHandler.ClearTenant)
			r.Put("/context", tenantHandler.SetContext)
			r.Post("/reload", tenantHandler.ReloadTenants)
		})

		r.Route("/explorer", func(r chi.Router) {
			explorerHandler := handlers.NewExplorerHandler(rt.queryBus, rt.errors, rt.opts.DefaultSite, rt.logger)
			r.Get("/pages", explorerHandler.ListPages)
			r.Get("/components", explorerHandler.ListComponents)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports the bootstrap state, running it on first use
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Readiness == nil {
		common.RespondJSON(w, http.StatusOK, ReadinessResponse{Status: string(sitecore.StateReady)})
		return
	}

	result := rt.opts.Readiness.Initialize(r.Context())
	if !result.Ready() {
		details := map[string]interface{}{
			"status":   string(result.State),
			"attempts": result.Attempts,
		}
		if result.Err != nil {
			details["error"] = result.Err.Error()
		}
		rt.errors.Handle(w, r, errors.NewUnavailableError("Sitecore").
			WithCode(errors.CodeBootstrap).
			WithDetails(details))
		return
	}
	common.RespondJSON(w, http.StatusOK, ReadinessResponse{Status: string(result.State), Attempts: result.Attempts})
}
