package ports

import (
	"context"
	"time"

	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// LayoutRequest addresses one rendered layout in one environment
type LayoutRequest struct {
	ContextID string
	SiteName  string
	RoutePath string
	Language  string
}

// LayoutFetcher retrieves the rendered layout of a route in one environment.
// Failures are reported in the returned document, never as a Go error or a
// panic crossing the boundary.
type LayoutFetcher interface {
	Environment() layout.Environment
	FetchLayout(ctx context.Context, req LayoutRequest) layout.LayoutDocument
}

// ItemInfoFetcher retrieves display metadata of a routed item.
// A nil item with a nil error means the item does not exist.
type ItemInfoFetcher interface {
	FetchItemInfo(ctx context.Context, req LayoutRequest) (*layout.ItemInfo, error)
}

// ContextSource supplies the context identifiers GraphQL calls are scoped by
type ContextSource interface {
	// Resolve returns the identifiers of the active context
	Resolve() tenant.ContextIDs

	// ResolveFor returns the identifiers of the named tenant
	ResolveFor(tenantID string) (tenant.ContextIDs, error)
}

// ContextSetter replaces the active context identifiers
type ContextSetter interface {
	SetContextIDs(ids tenant.ContextIDs)
}

// ContextStore is a context source whose active identifiers can be replaced
type ContextStore interface {
	ContextSource
	ContextSetter
}

// Cache stores derived results for a bounded time
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// Metrics records counters and timings
type Metrics interface {
	Increment(metric, label string)
	StartTimer(metric, label string) observability.Timer
}
