package queries

import (
	"context"

	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
)

// ListTenantsQuery asks for the reachable tenants and the active context
type ListTenantsQuery struct{}

// Validate implements bus.Query
func (ListTenantsQuery) Validate() error { return nil }

// TenantDTO is a tenant as shown to callers
type TenantDTO struct {
	TenantID    string            `json:"tenantId"`
	ResourceID  string            `json:"resourceId"`
	Name        string            `json:"name,omitempty"`
	DisplayName string            `json:"displayName"`
	Context     tenant.ContextIDs `json:"context"`
	Selected    bool              `json:"selected"`
}

// ListTenantsResult lists tenants and the identifiers comparisons use now
type ListTenantsResult struct {
	Application string            `json:"application,omitempty"`
	Tenants     []TenantDTO       `json:"tenants"`
	SelectedID  string            `json:"selectedTenantId,omitempty"`
	Active      tenant.ContextIDs `json:"activeContext"`
}

// TenantReader is the read side of the tenant registry
type TenantReader interface {
	Application() tenant.ApplicationContext
	Selected() (tenant.Tenant, bool)
	Resolve() tenant.ContextIDs
}

// ListTenantsHandler handles the ListTenantsQuery
type ListTenantsHandler struct {
	tenants TenantReader
}

// NewListTenantsHandler creates a new handler instance
func NewListTenantsHandler(tenants TenantReader) *ListTenantsHandler {
	return &ListTenantsHandler{tenants: tenants}
}

// Handle executes the query
func (h *ListTenantsHandler) Handle(_ context.Context, _ ListTenantsQuery) (*ListTenantsResult, error) {
	app := h.tenants.Application()
	selected, hasSelection := h.tenants.Selected()

	result := &ListTenantsResult{
		Application: app.Name,
		Tenants:     make([]TenantDTO, 0, len(app.ResourceAccess)),
		Active:      h.tenants.Resolve(),
	}
	if hasSelection {
		result.SelectedID = selected.TenantID
	}

	for _, t := range app.ResourceAccess {
		result.Tenants = append(result.Tenants, TenantDTO{
			TenantID:    t.TenantID,
			ResourceID:  t.ResourceID,
			Name:        t.TenantName,
			DisplayName: t.DisplayName(),
			Context:     t.Context,
			Selected:    hasSelection && t.TenantID == selected.TenantID,
		})
	}
	return result, nil
}
