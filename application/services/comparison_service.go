package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// CompareRequest addresses the route to compare. Context, when set, is used
// instead of the active context for this call only.
type CompareRequest struct {
	SiteName  string
	RoutePath string
	Language  string
	Context   *tenant.ContextIDs
}

// ComparisonService fetches the preview and published layouts of a route
// concurrently and returns them normalized side by side.
//
// Compare never fails: every failure is reported inside the result. Each of
// the three concurrent operations settles on its own, so one failing branch
// never hides the other.
type ComparisonService struct {
	preview   ports.LayoutFetcher
	published ports.LayoutFetcher
	itemInfo  ports.ItemInfoFetcher
	contexts  ports.ContextStore
	tracer    trace.Tracer
	metrics   ports.Metrics
	logger    *zap.Logger
}

// NewComparisonService creates the service. itemInfo may be nil to skip
// metadata; tracer and metrics fall back to no-ops.
func NewComparisonService(
	preview ports.LayoutFetcher,
	published ports.LayoutFetcher,
	itemInfo ports.ItemInfoFetcher,
	contexts ports.ContextStore,
	tracer trace.Tracer,
	metrics ports.Metrics,
	logger *zap.Logger,
) *ComparisonService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(observability.TracerName)
	}
	if metrics == nil {
		metrics = observability.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComparisonService{
		preview:   preview,
		published: published,
		itemInfo:  itemInfo,
		contexts:  contexts,
		tracer:    tracer,
		metrics:   metrics,
		logger:    logger,
	}
}

// SetContextIDs replaces the active context identifiers used by later
// comparisons
func (s *ComparisonService) SetContextIDs(ids tenant.ContextIDs) {
	s.contexts.SetContextIDs(ids)
}

// CompareLayouts compares a route using the active context
func (s *ComparisonService) CompareLayouts(ctx context.Context, siteName, routePath, language string) layout.ComparisonResult {
	return s.Compare(ctx, CompareRequest{SiteName: siteName, RoutePath: routePath, Language: language})
}

// Compare runs one comparison
func (s *ComparisonService) Compare(ctx context.Context, req CompareRequest) (result layout.ComparisonResult) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ComparisonService.Compare", trace.WithAttributes(
		attribute.String("sitecore.site", req.SiteName),
		attribute.String("sitecore.route", req.RoutePath),
		attribute.String("sitecore.language", req.Language),
	))

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Comparison failed",
				zap.Any("panic", rec),
				zap.String("site", req.SiteName),
				zap.String("route", req.RoutePath),
			)
			span.SetStatus(codes.Error, fmt.Sprint(rec))
			result = layout.ComparisonFailed()
		}

		status := result.Status()
		s.metrics.Increment(observability.MetricComparisons, string(status))
		span.SetAttributes(attribute.String("comparison.status", string(status)))
		span.End()

		s.logger.Debug("Comparison finished",
			zap.String("site", req.SiteName),
			zap.String("route", req.RoutePath),
			zap.String("status", string(status)),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	if req.Language == "" {
		req.Language = layout.DefaultLanguage
	}
	ids := s.resolve(req)

	previewReq := ports.LayoutRequest{
		ContextID: ids.Preview,
		SiteName:  req.SiteName,
		RoutePath: req.RoutePath,
		Language:  req.Language,
	}
	publishedReq := previewReq
	publishedReq.ContextID = ids.Live

	var (
		preview   layout.LayoutDocument
		published layout.LayoutDocument
		info      *layout.ItemInfo
		g         errgroup.Group
	)
	// Branches report failures in their documents and never return an error
	g.Go(func() error {
		preview = s.fetchBranch(ctx, s.preview, layout.EnvironmentPreview, previewReq)
		return nil
	})
	g.Go(func() error {
		published = s.fetchBranch(ctx, s.published, layout.EnvironmentPublished, publishedReq)
		return nil
	})
	g.Go(func() error {
		info = s.fetchItemInfo(ctx, previewReq)
		return nil
	})
	_ = g.Wait()

	return layout.ComparisonResult{
		Preview:   preview,
		Published: published,
		ItemInfo:  info,
	}
}

func (s *ComparisonService) resolve(req CompareRequest) tenant.ContextIDs {
	if req.Context != nil && !req.Context.IsZero() {
		return *req.Context
	}
	return s.contexts.Resolve()
}

func (s *ComparisonService) fetchBranch(ctx context.Context, f ports.LayoutFetcher, env layout.Environment, req ports.LayoutRequest) (doc layout.LayoutDocument) {
	ctx, span := s.tracer.Start(ctx, "fetch."+string(env))
	timer := s.metrics.StartTimer(observability.MetricFetchDuration, string(env))

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Layout fetch panicked",
				zap.String("environment", string(env)),
				zap.Any("panic", rec),
			)
			doc = layout.FailedBranch(env, fmt.Sprint(rec))
		}

		timer.Stop()
		outcome := "ok"
		if doc.Failed() {
			outcome = "error"
			span.SetStatus(codes.Error, doc.Error)
		}
		s.metrics.Increment(observability.MetricFetches, string(env)+"_"+outcome)
		span.End()
	}()

	got := f.FetchLayout(ctx, req)
	switch {
	case got.Error != "":
		s.logger.Warn("Layout fetch failed",
			zap.String("environment", string(env)),
			zap.String("site", req.SiteName),
			zap.String("route", req.RoutePath),
			zap.String("error", got.Error),
		)
		return layout.FailedBranch(env, got.Error)
	case got.Rendered == "":
		return layout.FailedBranch(env, fmt.Sprintf("No layout data found in %s environment", env))
	default:
		return layout.Rendered(layout.Normalize(got.Rendered))
	}
}

// fetchItemInfo returns nil on any failure; metadata is optional
func (s *ComparisonService) fetchItemInfo(ctx context.Context, req ports.LayoutRequest) (info *layout.ItemInfo) {
	if s.itemInfo == nil || req.ContextID == "" {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Item info fetch panicked", zap.Any("panic", rec))
			info = nil
		}
	}()

	ctx, span := s.tracer.Start(ctx, "fetch.itemInfo")
	defer span.End()

	got, err := s.itemInfo.FetchItemInfo(ctx, req)
	if err != nil {
		s.logger.Debug("Item info unavailable",
			zap.String("site", req.SiteName),
			zap.String("route", req.RoutePath),
			zap.Error(err),
		)
		return nil
	}
	return got
}
