package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/application/commands"
	"github.com/timmarsh1987/XMCVisualiser/application/commands/bus"
	"github.com/timmarsh1987/XMCVisualiser/application/queries"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/pkg/common"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

// TenantHandler serves the tenant list and the active context
type TenantHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *errors.ErrorHandler
	logger     *zap.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, eh *errors.ErrorHandler, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     eh,
		logger:     logger,
	}
}

// SelectTenantRequest represents the request body for selecting a tenant
type SelectTenantRequest struct {
	TenantID string `json:"tenantId"`
}

// SetContextRequest represents the request body for setting context ids
type SetContextRequest struct {
	Preview string `json:"preview"`
	Live    string `json:"live"`
}

// ReloadRequest represents the optional request body for reloading tenants
type ReloadRequest struct {
	Reason string `json:"reason"`
}

// ListTenants handles GET /tenants
func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	h.respondTenants(w, r, http.StatusOK)
}

// SelectTenant handles PUT /tenants/selected
func (h *TenantHandler) SelectTenant(w http.ResponseWriter, r *http.Request) {
	var req SelectTenantRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, errors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}

	if err := h.commandBus.Send(r.Context(), commands.SelectTenantCommand{TenantID: req.TenantID}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Tenant selected", zap.String("tenant_id", req.TenantID))
	h.respondTenants(w, r, http.StatusOK)
}

// ClearTenant handles DELETE /tenants/selected
func (h *TenantHandler) ClearTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.commandBus.Send(r.Context(), commands.ClearTenantCommand{}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondTenants(w, r, http.StatusOK)
}

// SetContext handles PUT /tenants/context
func (h *TenantHandler) SetContext(w http.ResponseWriter, r *http.Request) {
	var req SetContextRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, errors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}

	cmd := commands.SetContextIDsCommand{Preview: req.Preview, Live: req.Live}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondTenants(w, r, http.StatusOK)
}

// ReloadTenants handles POST /tenants/reload
func (h *TenantHandler) ReloadTenants(w http.ResponseWriter, r *http.Request) {
	req := ReloadRequest{Reason: "api request"}
	if r.ContentLength > 0 {
		if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
			h.errors.Handle(w, r, errors.NewValidationError("Invalid request body: "+err.Error()))
			return
		}
	}

	if err := h.commandBus.Send(r.Context(), commands.ReloadTenantsCommand{Reason: req.Reason}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondTenants(w, r, http.StatusOK)
}

func (h *TenantHandler) respondTenants(w http.ResponseWriter, r *http.Request, status int) {
	result, err := querybus.Ask[*queries.ListTenantsResult](r.Context(), h.queryBus, queries.ListTenantsQuery{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondWithMeta(w, status, result, &common.MetaInfo{RequestID: common.ExtractRequestID(r)})
}
