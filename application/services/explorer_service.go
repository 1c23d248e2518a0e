package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/domain/explorer"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// ExplorerOptions bound the explorer fan-out
type ExplorerOptions struct {
	MaxRoutes   int
	Concurrency int
	CacheTTL    time.Duration
}

// ExplorerRequest names the routes of a site to inventory
type ExplorerRequest struct {
	SiteName string
	Routes   []string
	Language string
	Context  *tenant.ContextIDs
}

// PageError records a route that could not be loaded
type PageError struct {
	Route string `json:"route"`
	Error string `json:"error"`
}

// PageSet is the outcome of loading a list of routes. Failed routes are
// listed in Errors; they never abort the others.
type PageSet struct {
	Pages     []explorer.Page `json:"pages"`
	Errors    []PageError     `json:"errors,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
}

// ExplorerService loads preview layouts of many routes and derives the page
// and component inventories from them
type ExplorerService struct {
	preview  ports.LayoutFetcher
	itemInfo ports.ItemInfoFetcher
	contexts ports.ContextSource
	cache    ports.Cache
	opts     ExplorerOptions
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewExplorerService creates the service. cache and itemInfo may be nil.
func NewExplorerService(
	preview ports.LayoutFetcher,
	itemInfo ports.ItemInfoFetcher,
	contexts ports.ContextSource,
	cache ports.Cache,
	opts ExplorerOptions,
	tracer trace.Tracer,
	logger *zap.Logger,
) *ExplorerService {
	if opts.MaxRoutes <= 0 {
		opts.MaxRoutes = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(observability.TracerName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExplorerService{
		preview:  preview,
		itemInfo: itemInfo,
		contexts: contexts,
		cache:    cache,
		opts:     opts,
		tracer:   tracer,
		logger:   logger,
	}
}

// LoadPages fetches every route and returns the pages in route order
func (s *ExplorerService) LoadPages(ctx context.Context, req ExplorerRequest) (*PageSet, error) {
	req.SiteName = strings.TrimSpace(req.SiteName)
	if req.SiteName == "" {
		return nil, errors.NewValidationError("site name is required")
	}
	routes, truncated := s.normalizeRoutes(req.Routes)
	if len(routes) == 0 {
		return nil, errors.NewValidationError("at least one route is required")
	}
	if req.Language == "" {
		req.Language = layout.DefaultLanguage
	}

	ids := s.resolve(req.Context)
	if ids.Preview == "" {
		return nil, errors.NewConfigurationError("preview context ID is not configured").
			WithCode(errors.CodeMissingContext)
	}

	key := cacheKey(ids.Preview, req.SiteName, req.Language, routes)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			if set, ok := cached.(*PageSet); ok {
				return set, nil
			}
		}
	}

	ctx, span := s.tracer.Start(ctx, "ExplorerService.LoadPages", trace.WithAttributes(
		attribute.String("sitecore.site", req.SiteName),
		attribute.Int("explorer.routes", len(routes)),
	))
	defer span.End()

	type outcome struct {
		page explorer.Page
		err  string
	}
	outcomes := make([]outcome, len(routes))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, route := range routes {
		g.Go(func() error {
			page, err := s.loadPage(ctx, ports.LayoutRequest{
				ContextID: ids.Preview,
				SiteName:  req.SiteName,
				RoutePath: route,
				Language:  req.Language,
			})
			if err != nil {
				outcomes[i].err = err.Error()
				return nil
			}
			outcomes[i].page = page
			return nil
		})
	}
	_ = g.Wait()

	set := &PageSet{Pages: []explorer.Page{}, Truncated: truncated}
	for i, o := range outcomes {
		if o.err != "" {
			set.Errors = append(set.Errors, PageError{Route: routes[i], Error: o.err})
			continue
		}
		set.Pages = append(set.Pages, o.page)
	}

	s.logger.Debug("Explorer pages loaded",
		zap.String("site", req.SiteName),
		zap.Int("pages", len(set.Pages)),
		zap.Int("errors", len(set.Errors)),
	)

	// Partial results are returned but not cached so the failed routes are
	// retried on the next call
	if s.cache != nil && len(set.Errors) == 0 && s.opts.CacheTTL > 0 {
		s.cache.Set(ctx, key, set, s.opts.CacheTTL)
	}
	return set, nil
}

// LoadComponents loads the pages and groups their renderings by component
func (s *ExplorerService) LoadComponents(ctx context.Context, req ExplorerRequest) ([]explorer.ComponentUsage, *PageSet, error) {
	set, err := s.LoadPages(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return explorer.BuildComponentUsage(set.Pages), set, nil
}

func (s *ExplorerService) loadPage(ctx context.Context, req ports.LayoutRequest) (page explorer.Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Explorer route panicked", zap.String("route", req.RoutePath), zap.Any("panic", rec))
			err = fmt.Errorf("%v", rec)
		}
	}()

	doc := s.preview.FetchLayout(ctx, req)
	if doc.Error != "" {
		return explorer.Page{}, fmt.Errorf("%s", doc.Error)
	}
	if doc.Rendered == "" {
		return explorer.Page{}, fmt.Errorf("No layout data found in %s environment", s.preview.Environment())
	}

	var info *layout.ItemInfo
	if s.itemInfo != nil {
		got, infoErr := s.itemInfo.FetchItemInfo(ctx, req)
		if infoErr != nil {
			s.logger.Debug("Item info unavailable", zap.String("route", req.RoutePath), zap.Error(infoErr))
		} else {
			info = got
		}
	}

	page, err = explorer.PageFromRoute([]byte(doc.Rendered), info, req.RoutePath)
	if err != nil {
		return explorer.Page{}, err
	}
	if page.Language == "" {
		page.Language = req.Language
	}
	return page, nil
}

func (s *ExplorerService) resolve(override *tenant.ContextIDs) tenant.ContextIDs {
	if override != nil && !override.IsZero() {
		return *override
	}
	return s.contexts.Resolve()
}

// normalizeRoutes trims and de-duplicates routes, keeping first-seen order,
// and applies the route cap
func (s *ExplorerService) normalizeRoutes(in []string) ([]string, bool) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	if len(out) > s.opts.MaxRoutes {
		return out[:s.opts.MaxRoutes], true
	}
	return out, false
}

func cacheKey(contextID, site, language string, routes []string) string {
	return fmt.Sprintf("explorer:%s:%s:%s:%s", contextID, site, language, strings.Join(routes, ","))
}
