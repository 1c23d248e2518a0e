package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
	sets  int
}

func newMapCache() *mapCache { return &mapCache{items: map[string]interface{}{}} }

func (c *mapCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.sets++
}

func (c *mapCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *mapCache) Clear(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]interface{}{}
}

func routeDoc(name, component string) string {
	return fmt.Sprintf(`{"sitecore":{"route":{"itemId":"id-%[1]s","name":"%[1]s","displayName":"%[1]s page","templateName":"Page",
		"placeholders":{"main":[{"uid":"u-%[1]s","componentName":"%[2]s","dataSource":"ds-%[1]s"}]}}}}`, name, component)
}

func explorerFetcher() *fakeFetcher {
	return &fakeFetcher{env: layout.EnvironmentPreview, fn: func(_ context.Context, req ports.LayoutRequest) layout.LayoutDocument {
		switch req.RoutePath {
		case "/":
			return layout.Rendered(routeDoc("home", "Hero"))
		case "/about":
			return layout.Rendered(routeDoc("about", "Hero"))
		case "/contact":
			return layout.Rendered(routeDoc("contact", "Form"))
		case "/empty":
			return layout.LayoutDocument{}
		default:
			return layout.Failure("GraphQL error: item not found")
		}
	}}
}

func newExplorer(f ports.LayoutFetcher, info ports.ItemInfoFetcher, cache ports.Cache, opts ExplorerOptions) *ExplorerService {
	return NewExplorerService(f, info, newRegistry(), cache, opts, nil, nil)
}

func TestExplorer_LoadPagesInRouteOrder(t *testing.T) {
	f := explorerFetcher()
	svc := newExplorer(f, nil, nil, ExplorerOptions{Concurrency: 2})

	set, err := svc.LoadPages(context.Background(), ExplorerRequest{
		SiteName: "website",
		Routes:   []string{"/contact", " / ", "/about", "/contact"},
	})

	require.NoError(t, err)
	require.Len(t, set.Pages, 3)
	assert.Equal(t, "contact", set.Pages[0].Name)
	assert.Equal(t, "home", set.Pages[1].Name)
	assert.Equal(t, "/", set.Pages[1].Path)
	assert.Equal(t, "about page", set.Pages[2].DisplayName)
	assert.Equal(t, "en", set.Pages[0].Language)
	assert.Empty(t, set.Errors)
	assert.False(t, set.Truncated)
	assert.Equal(t, int32(3), f.calls.Load())
	assert.Equal(t, "dev-preview-context", f.lastRequest().ContextID)
}

func TestExplorer_FailuresCollected(t *testing.T) {
	svc := newExplorer(explorerFetcher(), nil, nil, ExplorerOptions{})

	set, err := svc.LoadPages(context.Background(), ExplorerRequest{
		SiteName: "website",
		Routes:   []string{"/", "/missing", "/empty"},
	})

	require.NoError(t, err)
	require.Len(t, set.Pages, 1)
	assert.Equal(t, []PageError{
		{Route: "/missing", Error: "GraphQL error: item not found"},
		{Route: "/empty", Error: "No layout data found in preview environment"},
	}, set.Errors)
}

func TestExplorer_PanicIsolatedToRoute(t *testing.T) {
	f := &fakeFetcher{env: layout.EnvironmentPreview, fn: func(_ context.Context, req ports.LayoutRequest) layout.LayoutDocument {
		if req.RoutePath == "/bad" {
			panic("decoder exploded")
		}
		return layout.Rendered(routeDoc("home", "Hero"))
	}}
	svc := newExplorer(f, nil, nil, ExplorerOptions{})

	set, err := svc.LoadPages(context.Background(), ExplorerRequest{SiteName: "website", Routes: []string{"/bad", "/"}})

	require.NoError(t, err)
	assert.Len(t, set.Pages, 1)
	assert.Equal(t, []PageError{{Route: "/bad", Error: "decoder exploded"}}, set.Errors)
}

func TestExplorer_ItemInfoOverridesPath(t *testing.T) {
	info := &fakeItemInfo{info: &layout.ItemInfo{Name: "home", DisplayName: "Home", Path: "/sitecore/content/site/home"}}
	svc := newExplorer(explorerFetcher(), info, nil, ExplorerOptions{})

	set, err := svc.LoadPages(context.Background(), ExplorerRequest{SiteName: "website", Routes: []string{"/"}})

	require.NoError(t, err)
	assert.Equal(t, "/sitecore/content/site/home", set.Pages[0].Path)
	assert.Equal(t, "/", set.Pages[0].URL)
	assert.Equal(t, "Home", set.Pages[0].DisplayName)
}

func TestExplorer_Validation(t *testing.T) {
	svc := newExplorer(explorerFetcher(), nil, nil, ExplorerOptions{})
	ctx := context.Background()

	_, err := svc.LoadPages(ctx, ExplorerRequest{Routes: []string{"/"}})
	assert.True(t, errors.IsValidation(err))

	_, err = svc.LoadPages(ctx, ExplorerRequest{SiteName: "website", Routes: []string{" ", ""}})
	assert.True(t, errors.IsValidation(err))

	empty := NewExplorerService(explorerFetcher(), nil, NewTenantRegistry(nil, nil), nil, ExplorerOptions{}, nil, nil)
	_, err = empty.LoadPages(ctx, ExplorerRequest{SiteName: "website", Routes: []string{"/"}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Equal(t, errors.CodeMissingContext, errors.GetAppError(err).Code)
}

func TestExplorer_RouteCap(t *testing.T) {
	f := explorerFetcher()
	svc := newExplorer(f, nil, nil, ExplorerOptions{MaxRoutes: 2})

	set, err := svc.LoadPages(context.Background(), ExplorerRequest{SiteName: "website", Routes: []string{"/", "/about", "/contact"}})

	require.NoError(t, err)
	assert.True(t, set.Truncated)
	assert.Len(t, set.Pages, 2)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestExplorer_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	f := &fakeFetcher{env: layout.EnvironmentPreview, fn: func(context.Context, ports.LayoutRequest) layout.LayoutDocument {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return layout.Rendered(routeDoc("x", "Hero"))
	}}
	svc := newExplorer(f, nil, nil, ExplorerOptions{Concurrency: 2})

	routes := []string{"/1", "/2", "/3", "/4", "/5", "/6"}
	set, err := svc.LoadPages(context.Background(), ExplorerRequest{SiteName: "website", Routes: routes})

	require.NoError(t, err)
	assert.Len(t, set.Pages, len(routes))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExplorer_CachesCompleteSetsOnly(t *testing.T) {
	f := explorerFetcher()
	cache := newMapCache()
	svc := newExplorer(f, nil, cache, ExplorerOptions{CacheTTL: time.Minute})
	ctx := context.Background()
	req := ExplorerRequest{SiteName: "website", Routes: []string{"/", "/about"}}

	first, err := svc.LoadPages(ctx, req)
	require.NoError(t, err)
	second, err := svc.LoadPages(ctx, req)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(2), f.calls.Load())

	partial := ExplorerRequest{SiteName: "website", Routes: []string{"/", "/missing"}}
	_, err = svc.LoadPages(ctx, partial)
	require.NoError(t, err)
	_, err = svc.LoadPages(ctx, partial)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, int32(6), f.calls.Load())
}

func TestExplorer_CacheKeyedByContext(t *testing.T) {
	f := explorerFetcher()
	svc := newExplorer(f, nil, newMapCache(), ExplorerOptions{CacheTTL: time.Minute})
	ctx := context.Background()

	_, err := svc.LoadPages(ctx, ExplorerRequest{SiteName: "website", Routes: []string{"/"}})
	require.NoError(t, err)
	_, err = svc.LoadPages(ctx, ExplorerRequest{SiteName: "website", Routes: []string{"/"}, Context: &tenant.ContextIDs{Preview: "other"}})
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, "other", f.lastRequest().ContextID)
}

func TestExplorer_LoadComponents(t *testing.T) {
	svc := newExplorer(explorerFetcher(), nil, nil, ExplorerOptions{})

	usages, set, err := svc.LoadComponents(context.Background(), ExplorerRequest{
		SiteName: "website",
		Routes:   []string{"/contact", "/", "/about"},
	})

	require.NoError(t, err)
	assert.Len(t, set.Pages, 3)
	require.Len(t, usages, 2)
	assert.Equal(t, "Hero", usages[0].ComponentName)
	assert.Equal(t, 2, usages[0].TotalUsages)
	assert.Equal(t, []string{"ds-home", "ds-about"}, usages[0].Datasources)
	assert.Equal(t, "Form", usages[1].ComponentName)
}
