package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
)

// TenantsFile loads the application context from a YAML (or JSON) file of
// the form
//
//	id: app-1
//	name: My installation
//	resourceAccess:
//	  - tenantId: t-1
//	    tenantDisplayName: Production
//	    context: {preview: ..., live: ...}
type TenantsFile struct {
	Path string
}

// Load reads and validates the file
func (f TenantsFile) Load(_ context.Context) (*tenant.ApplicationContext, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenants file: %w", err)
	}
	return ParseTenants(data)
}

// ParseTenants decodes an application context. YAML is a superset of JSON,
// so both formats are accepted.
func ParseTenants(data []byte) (*tenant.ApplicationContext, error) {
	var app tenant.ApplicationContext
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse tenants file: %w", err)
	}
	if len(app.ResourceAccess) == 0 {
		return nil, fmt.Errorf("tenants file lists no resourceAccess entries")
	}

	seen := make(map[string]bool, len(app.ResourceAccess))
	for i, t := range app.ResourceAccess {
		id := strings.TrimSpace(t.TenantID)
		if id == "" {
			return nil, fmt.Errorf("resourceAccess[%d]: tenantId is required", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("resourceAccess[%d]: duplicate tenantId %q", i, id)
		}
		if t.Context.IsZero() {
			return nil, fmt.Errorf("resourceAccess[%d]: tenant %q has no context ids", i, id)
		}
		seen[id] = true
		app.ResourceAccess[i].TenantID = id
	}
	return &app, nil
}

// StaticTenants serves an application context built from explicitly
// configured context ids, or the development context
type StaticTenants struct {
	App *tenant.ApplicationContext
}

// Load returns the configured application context
func (s StaticTenants) Load(context.Context) (*tenant.ApplicationContext, error) {
	return s.App, nil
}

// StaticApplication returns the application context implied by cfg when no
// tenants file is set: one tenant with the configured context ids, the
// development tenants when useDevelopment is set, or an empty context.
func StaticApplication(cfg *Config, useDevelopment bool) *tenant.ApplicationContext {
	if cfg.PreviewContextID != "" || cfg.LiveContextID != "" {
		return &tenant.ApplicationContext{
			ID:   "configured",
			Name: "Configured context",
			ResourceAccess: []tenant.Tenant{{
				ResourceID:        "configured",
				TenantID:          "configured",
				TenantDisplayName: "Configured tenant",
				Context: tenant.ContextIDs{
					Preview: cfg.PreviewContextID,
					Live:    cfg.LiveContextID,
				},
			}},
		}
	}
	if useDevelopment {
		return tenant.DevelopmentContext()
	}
	return &tenant.ApplicationContext{}
}
