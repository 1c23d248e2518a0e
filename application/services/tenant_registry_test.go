package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

func TestTenantRegistry_DefaultsToFirstTenant(t *testing.T) {
	r := newRegistry()

	assert.Equal(t, tenant.ContextIDs{Preview: "dev-preview-context", Live: "dev-live-context"}, r.Resolve())
	_, ok := r.Selected()
	assert.False(t, ok)
	assert.Len(t, r.Tenants(), 2)
}

func TestTenantRegistry_EmptyApplication(t *testing.T) {
	r := NewTenantRegistry(nil, nil)

	assert.True(t, r.Resolve().IsZero())
	assert.Empty(t, r.Tenants())
}

func TestTenantRegistry_Select(t *testing.T) {
	r := newRegistry()

	require.NoError(t, r.Select("dev-tenant-002"))
	selected, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, "Test Tenant", selected.DisplayName())
	assert.Equal(t, "test-preview-context", r.Resolve().Preview)

	// resource ids are accepted too
	require.NoError(t, r.Select("dev-resource-001"))
	assert.Equal(t, "dev-preview-context", r.Resolve().Preview)
}

func TestTenantRegistry_SelectErrors(t *testing.T) {
	r := newRegistry()

	err := r.Select("  ")
	assert.True(t, errors.IsValidation(err))

	err = r.Select("missing")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.Equal(t, errors.CodeTenantNotFound, errors.GetAppError(err).Code)

	// a failed select keeps the previous state
	assert.Equal(t, "dev-preview-context", r.Resolve().Preview)
}

func TestTenantRegistry_LastWriteWins(t *testing.T) {
	r := newRegistry()

	require.NoError(t, r.Select("dev-tenant-002"))
	r.SetContextIDs(tenant.ContextIDs{Preview: "manual-preview", Live: "manual-live"})

	assert.Equal(t, tenant.ContextIDs{Preview: "manual-preview", Live: "manual-live"}, r.Resolve())
	_, ok := r.Selected()
	assert.False(t, ok)

	require.NoError(t, r.Select("dev-tenant-002"))
	assert.Equal(t, "test-live-context", r.Resolve().Live)

	r.ClearSelection()
	assert.Equal(t, "dev-live-context", r.Resolve().Live)
}

func TestTenantRegistry_SetZeroContextClears(t *testing.T) {
	r := newRegistry()
	r.SetContextIDs(tenant.ContextIDs{Preview: "p"})
	assert.Equal(t, tenant.ContextIDs{Preview: "p"}, r.Resolve())

	r.SetContextIDs(tenant.ContextIDs{})
	assert.Equal(t, "dev-preview-context", r.Resolve().Preview)
}

func TestTenantRegistry_Replace(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Select("dev-tenant-002"))

	refreshed := tenant.DevelopmentContext()
	refreshed.ResourceAccess[1].Context = tenant.ContextIDs{Preview: "rotated-preview", Live: "rotated-live"}
	r.Replace(refreshed)

	selected, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, "dev-tenant-002", selected.TenantID)
	assert.Equal(t, "rotated-preview", r.Resolve().Preview)

	// selected tenant removed
	r.Replace(&tenant.ApplicationContext{ResourceAccess: refreshed.ResourceAccess[:1]})
	_, ok = r.Selected()
	assert.False(t, ok)
	assert.Equal(t, "dev-preview-context", r.Resolve().Preview)
}

func TestTenantRegistry_ResolveFor(t *testing.T) {
	r := newRegistry()

	ids, err := r.ResolveFor("dev-tenant-002")
	require.NoError(t, err)
	assert.Equal(t, "test-live-context", ids.Live)

	_, err = r.ResolveFor("nope")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestTenantRegistry_Listeners(t *testing.T) {
	r := newRegistry()

	var seen []tenant.ContextIDs
	r.OnChange(func(_ *tenant.ApplicationContext, active tenant.ContextIDs) {
		// listeners may read the registry
		_ = r.Tenants()
		seen = append(seen, active)
	})

	require.NoError(t, r.Select("dev-tenant-002"))
	r.ClearSelection()
	r.Replace(tenant.DevelopmentContext())
	_ = r.Select("missing")

	require.Len(t, seen, 3)
	assert.Equal(t, "test-preview-context", seen[0].Preview)
	assert.Equal(t, "dev-preview-context", seen[1].Preview)
	assert.Equal(t, "dev-preview-context", seen[2].Preview)
}

func TestTenantRegistry_ApplicationIsCopy(t *testing.T) {
	r := newRegistry()

	app := r.Application()
	app.ResourceAccess[0].TenantID = "mutated"

	_, ok := r.Selected()
	assert.False(t, ok)
	assert.Equal(t, "dev-tenant-001", r.Tenants()[0].TenantID)
}
