package services

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

// TenantListener is notified after the tenant set or the active context changes
type TenantListener func(app *tenant.ApplicationContext, active tenant.ContextIDs)

// TenantRegistry holds the application context and the active context slot.
// Selecting a tenant and setting context ids write the same slot; the last
// write wins.
type TenantRegistry struct {
	logger *zap.Logger

	mu         sync.RWMutex
	app        *tenant.ApplicationContext
	selectedID string
	active     *tenant.ContextIDs
	listeners  []TenantListener
}

// NewTenantRegistry creates a registry over app, which may be nil
func NewTenantRegistry(app *tenant.ApplicationContext, logger *zap.Logger) *TenantRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if app == nil {
		app = &tenant.ApplicationContext{}
	}
	return &TenantRegistry{app: app, logger: logger}
}

// OnChange registers a listener
func (r *TenantRegistry) OnChange(l TenantListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Application returns a copy of the application context
func (r *TenantRegistry) Application() tenant.ApplicationContext {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app := *r.app
	app.ResourceAccess = append([]tenant.Tenant(nil), r.app.ResourceAccess...)
	return app
}

// Tenants returns the reachable tenants
func (r *TenantRegistry) Tenants() []tenant.Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]tenant.Tenant{}, r.app.ResourceAccess...)
}

// Selected returns the selected tenant, if any
func (r *TenantRegistry) Selected() (tenant.Tenant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.selectedID == "" {
		return tenant.Tenant{}, false
	}
	return r.app.Find(r.selectedID)
}

// Select makes tenantID the active context
func (r *TenantRegistry) Select(tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return errors.NewValidationError("tenant id is required")
	}

	r.mu.Lock()
	t, ok := r.app.Find(tenantID)
	if !ok {
		r.mu.Unlock()
		return errors.NewNotFoundError("tenant").
			WithCode(errors.CodeTenantNotFound).
			WithDetail("tenant_id", tenantID)
	}
	ids := t.Context
	r.selectedID = t.TenantID
	r.active = &ids
	r.mu.Unlock()

	r.logger.Info("Tenant selected",
		zap.String("tenant_id", t.TenantID),
		zap.String("tenant", t.DisplayName()),
	)
	r.notify()
	return nil
}

// ClearSelection empties the active context slot
func (r *TenantRegistry) ClearSelection() {
	r.mu.Lock()
	r.selectedID = ""
	r.active = nil
	r.mu.Unlock()

	r.notify()
}

// SetContextIDs supplies identifiers directly, replacing any selection
func (r *TenantRegistry) SetContextIDs(ids tenant.ContextIDs) {
	r.mu.Lock()
	r.selectedID = ""
	if ids.IsZero() {
		r.active = nil
	} else {
		r.active = &ids
	}
	r.mu.Unlock()

	r.notify()
}

// Replace swaps the application context. The selection survives when the
// selected tenant still exists and is refreshed from the new record.
func (r *TenantRegistry) Replace(app *tenant.ApplicationContext) {
	if app == nil {
		app = &tenant.ApplicationContext{}
	}

	r.mu.Lock()
	r.app = app
	if r.selectedID != "" {
		if t, ok := app.Find(r.selectedID); ok {
			ids := t.Context
			r.active = &ids
		} else {
			r.logger.Warn("Selected tenant no longer available", zap.String("tenant_id", r.selectedID))
			r.selectedID = ""
			r.active = nil
		}
	}
	count := len(app.ResourceAccess)
	r.mu.Unlock()

	r.logger.Info("Tenants replaced", zap.Int("tenants", count))
	r.notify()
}

// Resolve returns the identifiers of the active context
func (r *TenantRegistry) Resolve() tenant.ContextIDs {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return tenant.Resolve(r.active, r.app)
}

// ResolveFor returns the identifiers of a specific tenant
func (r *TenantRegistry) ResolveFor(tenantID string) (tenant.ContextIDs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.app.Find(tenantID)
	if !ok {
		return tenant.ContextIDs{}, errors.NewNotFoundError("tenant").
			WithCode(errors.CodeTenantNotFound).
			WithDetail("tenant_id", tenantID)
	}
	return t.Context, nil
}

func (r *TenantRegistry) notify() {
	r.mu.RLock()
	listeners := append([]TenantListener(nil), r.listeners...)
	app := r.app
	active := tenant.Resolve(r.active, r.app)
	r.mu.RUnlock()

	for _, l := range listeners {
		l(app, active)
	}
}
