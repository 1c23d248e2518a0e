package queries

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/application/services"
	"github.com/timmarsh1987/XMCVisualiser/domain/explorer"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

type mockComparer struct{ mock.Mock }

func (m *mockComparer) Compare(ctx context.Context, req services.CompareRequest) layout.ComparisonResult {
	args := m.Called(ctx, req)
	return args.Get(0).(layout.ComparisonResult)
}

type mockLoader struct{ mock.Mock }

func (m *mockLoader) LoadPages(ctx context.Context, req services.ExplorerRequest) (*services.PageSet, error) {
	args := m.Called(ctx, req)
	set, _ := args.Get(0).(*services.PageSet)
	return set, args.Error(1)
}

func newBus(t *testing.T, comparer Comparer, loader PageLoader, registry *services.TenantRegistry) *bus.QueryBus {
	t.Helper()
	b := bus.NewQueryBus()
	h := &Handlers{
		Compare:  NewCompareLayoutsHandler(comparer, registry),
		Explorer: NewExplorerHandler(loader, registry),
		Tenants:  NewListTenantsHandler(registry),
	}
	require.NoError(t, h.Register(b))
	return b
}

func TestCompareLayoutsQuery_Validate(t *testing.T) {
	tests := []struct {
		name  string
		query CompareLayoutsQuery
		valid bool
	}{
		{"valid", CompareLayoutsQuery{SiteName: "website", RoutePath: "/"}, true},
		{"missing site", CompareLayoutsQuery{RoutePath: "/"}, false},
		{"missing route", CompareLayoutsQuery{SiteName: "website"}, false},
		{"relative route", CompareLayoutsQuery{SiteName: "website", RoutePath: "home"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestCompareLayouts(t *testing.T) {
	comparer := new(mockComparer)
	registry := services.NewTenantRegistry(tenant.DevelopmentContext(), nil)
	b := newBus(t, comparer, new(mockLoader), registry)

	comparer.On("Compare", mock.Anything, services.CompareRequest{
		SiteName:  "website",
		RoutePath: "/home",
		Language:  "en",
	}).Return(layout.ComparisonResult{
		Preview:   layout.Rendered("{}"),
		Published: layout.Rendered("{}"),
	}).Once()

	got, err := bus.Ask[*CompareLayoutsResult](context.Background(), b, CompareLayoutsQuery{SiteName: " website ", RoutePath: "/home"})

	require.NoError(t, err)
	assert.Equal(t, layout.StatusComplete, got.Status)
	assert.True(t, got.Identical)
	assert.Equal(t, "en", got.Language)
	_, parseErr := uuid.Parse(got.ComparisonID)
	assert.NoError(t, parseErr)
	comparer.AssertExpectations(t)
}

func TestCompareLayouts_TenantOverride(t *testing.T) {
	comparer := new(mockComparer)
	registry := services.NewTenantRegistry(tenant.DevelopmentContext(), nil)
	b := newBus(t, comparer, new(mockLoader), registry)

	comparer.On("Compare", mock.Anything, mock.MatchedBy(func(req services.CompareRequest) bool {
		return req.Context != nil && req.Context.Preview == "test-preview-context"
	})).Return(layout.ComparisonResult{
		Preview:   layout.Rendered("{}"),
		Published: layout.FailedBranch(layout.EnvironmentPublished, "timeout"),
	}).Once()

	got, err := bus.Ask[*CompareLayoutsResult](context.Background(), b, CompareLayoutsQuery{
		SiteName: "website", RoutePath: "/", TenantID: "dev-tenant-002",
	})
	require.NoError(t, err)
	assert.Equal(t, layout.StatusPartial, got.Status)
	assert.False(t, got.Identical)

	_, err = b.Ask(context.Background(), CompareLayoutsQuery{SiteName: "website", RoutePath: "/", TenantID: "unknown"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	comparer.AssertExpectations(t)
}

func TestListPages_FiltersBySearch(t *testing.T) {
	loader := new(mockLoader)
	registry := services.NewTenantRegistry(tenant.DevelopmentContext(), nil)
	b := newBus(t, new(mockComparer), loader, registry)

	set := &services.PageSet{
		Pages: []explorer.Page{
			{Name: "home", DisplayName: "Home", Path: "/"},
			{Name: "about", DisplayName: "About us", Path: "/about"},
		},
		Errors: []services.PageError{{Route: "/gone", Error: "not found"}},
	}
	loader.On("LoadPages", mock.Anything, services.ExplorerRequest{
		SiteName: "website",
		Routes:   []string{"/", "/about", "/gone"},
	}).Return(set, nil)

	got, err := bus.Ask[*ListPagesResult](context.Background(), b, ListPagesQuery{
		SiteName: "website",
		Routes:   []string{"/", "/about", "/gone"},
		Search:   "ABOUT",
	})

	require.NoError(t, err)
	require.Len(t, got.Pages, 1)
	assert.Equal(t, "about", got.Pages[0].Name)
	assert.Equal(t, 1, got.Total)
	assert.Len(t, got.Errors, 1)
}

func TestListComponents(t *testing.T) {
	loader := new(mockLoader)
	registry := services.NewTenantRegistry(tenant.DevelopmentContext(), nil)
	b := newBus(t, new(mockComparer), loader, registry)

	loader.On("LoadPages", mock.Anything, mock.Anything).Return(&services.PageSet{
		Pages: []explorer.Page{
			{ID: "1", Path: "/", Renderings: []explorer.Rendering{{ComponentName: "Hero"}, {ComponentName: "Footer"}}},
			{ID: "2", Path: "/about", Renderings: []explorer.Rendering{{ComponentName: "Hero"}}},
		},
	}, nil)

	got, err := bus.Ask[*ListComponentsResult](context.Background(), b, ListComponentsQuery{
		SiteName: "website",
		Routes:   []string{"/", "/about"},
	})

	require.NoError(t, err)
	require.Len(t, got.Components, 2)
	assert.Equal(t, "Hero", got.Components[0].ComponentName)
	assert.Equal(t, 2, got.PageCount)
}

func TestListPages_LoaderError(t *testing.T) {
	loader := new(mockLoader)
	registry := services.NewTenantRegistry(nil, nil)
	b := newBus(t, new(mockComparer), loader, registry)

	loader.On("LoadPages", mock.Anything, mock.Anything).
		Return(nil, errors.NewConfigurationError("preview context ID is not configured").WithCode(errors.CodeMissingContext))

	_, err := b.Ask(context.Background(), ListPagesQuery{SiteName: "website", Routes: []string{"/"}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestListTenants(t *testing.T) {
	registry := services.NewTenantRegistry(tenant.DevelopmentContext(), nil)
	b := newBus(t, new(mockComparer), new(mockLoader), registry)
	require.NoError(t, registry.Select("dev-tenant-002"))

	got, err := bus.Ask[*ListTenantsResult](context.Background(), b, ListTenantsQuery{})

	require.NoError(t, err)
	require.Len(t, got.Tenants, 2)
	assert.False(t, got.Tenants[0].Selected)
	assert.True(t, got.Tenants[1].Selected)
	assert.Equal(t, "dev-tenant-002", got.SelectedID)
	assert.Equal(t, "test-live-context", got.Active.Live)
	assert.Equal(t, "Test Tenant", got.Tenants[1].DisplayName)
}
