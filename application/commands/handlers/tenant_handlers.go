package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/application/commands"
	"github.com/timmarsh1987/XMCVisualiser/application/commands/bus"
	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// TenantStore is the write side of the tenant registry
type TenantStore interface {
	Select(tenantID string) error
	ClearSelection()
	SetContextIDs(ids tenant.ContextIDs)
	Replace(app *tenant.ApplicationContext)
}

// TenantSource loads the application context from its origin
type TenantSource interface {
	Load(ctx context.Context) (*tenant.ApplicationContext, error)
}

// TenantHandlers handles the tenant commands
type TenantHandlers struct {
	store   TenantStore
	source  TenantSource
	metrics ports.Metrics
	logger  *zap.Logger
}

// NewTenantHandlers creates the handlers. source may be nil when tenants are
// not reloadable.
func NewTenantHandlers(store TenantStore, source TenantSource, metrics ports.Metrics, logger *zap.Logger) *TenantHandlers {
	if metrics == nil {
		metrics = observability.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantHandlers{store: store, source: source, metrics: metrics, logger: logger}
}

// Register binds every handler to its command type
func (h *TenantHandlers) Register(b *bus.CommandBus) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.SelectTenantCommand{}, bus.Typed(h.HandleSelect)},
		{commands.ClearTenantCommand{}, bus.Typed(h.HandleClear)},
		{commands.SetContextIDsCommand{}, bus.Typed(h.HandleSetContextIDs)},
		{commands.ReloadTenantsCommand{}, bus.Typed(h.HandleReload)},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleSelect executes the select tenant command
func (h *TenantHandlers) HandleSelect(_ context.Context, cmd commands.SelectTenantCommand) error {
	return h.store.Select(cmd.TenantID)
}

// HandleClear executes the clear tenant command
func (h *TenantHandlers) HandleClear(_ context.Context, _ commands.ClearTenantCommand) error {
	h.store.ClearSelection()
	return nil
}

// HandleSetContextIDs executes the set context ids command
func (h *TenantHandlers) HandleSetContextIDs(_ context.Context, cmd commands.SetContextIDsCommand) error {
	h.store.SetContextIDs(cmd.ContextIDs())
	return nil
}

// HandleReload executes the reload tenants command
func (h *TenantHandlers) HandleReload(ctx context.Context, cmd commands.ReloadTenantsCommand) error {
	if h.source == nil {
		h.metrics.Increment(observability.MetricTenantReloads, "skipped")
		return nil
	}

	app, err := h.source.Load(ctx)
	if err != nil {
		h.metrics.Increment(observability.MetricTenantReloads, "error")
		return errors.NewConfigurationError("failed to load tenants").WithCause(err)
	}

	h.store.Replace(app)
	h.metrics.Increment(observability.MetricTenantReloads, "ok")
	h.logger.Info("Tenants reloaded",
		zap.String("reason", cmd.Reason),
		zap.Int("tenants", len(app.ResourceAccess)),
	)
	return nil
}
