// Package tenant describes the XM Cloud tenants an installation can reach and
// the rule for choosing which context identifiers a GraphQL call uses.
package tenant

import "strings"

// ContextIDs are the opaque identifiers selecting a tenant's preview and live
// content. They are passed to the GraphQL endpoints as sitecoreContextId.
type ContextIDs struct {
	Preview string `json:"preview" yaml:"preview"`
	Live    string `json:"live" yaml:"live"`
}

// IsZero reports whether neither identifier is set
func (c ContextIDs) IsZero() bool {
	return strings.TrimSpace(c.Preview) == "" && strings.TrimSpace(c.Live) == ""
}

// Tenant is one resource the installation has access to
type Tenant struct {
	ResourceID        string     `json:"resourceId" yaml:"resourceId"`
	TenantID          string     `json:"tenantId" yaml:"tenantId"`
	TenantName        string     `json:"tenantName,omitempty" yaml:"tenantName"`
	TenantDisplayName string     `json:"tenantDisplayName" yaml:"tenantDisplayName"`
	Context           ContextIDs `json:"context" yaml:"context"`
}

// DisplayName returns the most readable name available
func (t Tenant) DisplayName() string {
	switch {
	case t.TenantDisplayName != "":
		return t.TenantDisplayName
	case t.TenantName != "":
		return t.TenantName
	default:
		return t.TenantID
	}
}

// ApplicationContext is the installation record listing reachable tenants
type ApplicationContext struct {
	ID             string   `json:"id" yaml:"id"`
	URL            string   `json:"url,omitempty" yaml:"url"`
	Name           string   `json:"name" yaml:"name"`
	Type           string   `json:"type,omitempty" yaml:"type"`
	State          string   `json:"state,omitempty" yaml:"state"`
	InstallationID string   `json:"installationId,omitempty" yaml:"installationId"`
	ResourceAccess []Tenant `json:"resourceAccess" yaml:"resourceAccess"`
}

// Find returns the tenant with the given tenant or resource id
func (a *ApplicationContext) Find(id string) (Tenant, bool) {
	if a == nil || id == "" {
		return Tenant{}, false
	}
	for _, t := range a.ResourceAccess {
		if t.TenantID == id || t.ResourceID == id {
			return t, true
		}
	}
	return Tenant{}, false
}

// First returns the first reachable tenant
func (a *ApplicationContext) First() (Tenant, bool) {
	if a == nil || len(a.ResourceAccess) == 0 {
		return Tenant{}, false
	}
	return a.ResourceAccess[0], true
}

// Resolve picks the context identifiers for a call. An active context (a
// selected tenant or ids supplied explicitly) always wins; otherwise the
// first resourceAccess entry is used. Identifiers are taken from a single
// source and never mixed.
func Resolve(active *ContextIDs, app *ApplicationContext) ContextIDs {
	if active != nil && !active.IsZero() {
		return *active
	}
	if first, ok := app.First(); ok {
		return first.Context
	}
	return ContextIDs{}
}

// DevelopmentContext is the application context used when the service runs
// outside an XM Cloud installation and no tenants file is configured
func DevelopmentContext() *ApplicationContext {
	return &ApplicationContext{
		ID:             "dev-app-001",
		Name:           "XMC Visualiser (Development)",
		Type:           "development",
		State:          "active",
		InstallationID: "dev-install-001",
		ResourceAccess: []Tenant{
			{
				ResourceID:        "dev-resource-001",
				TenantID:          "dev-tenant-001",
				TenantName:        "development-tenant",
				TenantDisplayName: "Development Tenant",
				Context: ContextIDs{
					Preview: "dev-preview-context",
					Live:    "dev-live-context",
				},
			},
			{
				ResourceID:        "dev-resource-002",
				TenantID:          "dev-tenant-002",
				TenantName:        "test-tenant",
				TenantDisplayName: "Test Tenant",
				Context: ContextIDs{
					Preview: "test-preview-context",
					Live:    "test-live-context",
				},
			},
		},
	}
}
