package commands

import (
	"strings"

	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
	"github.com/timmarsh1987/XMCVisualiser/pkg/utils"
)

// SelectTenantCommand makes a tenant the active context
type SelectTenantCommand struct {
	TenantID string `json:"tenantId" validate:"required,max=200"`
}

// Validate checks the command fields
func (c SelectTenantCommand) Validate() error {
	if strings.TrimSpace(c.TenantID) == "" {
		return errors.NewValidationError("tenantId is required")
	}
	return utils.ValidateStruct(c)
}

// ClearTenantCommand empties the active context so the first tenant is used
type ClearTenantCommand struct{}

// Validate implements bus.Command
func (ClearTenantCommand) Validate() error { return nil }

// SetContextIDsCommand supplies context identifiers directly
type SetContextIDsCommand struct {
	Preview string `json:"preview" validate:"required_without=Live,max=500"`
	Live    string `json:"live" validate:"required_without=Preview,max=500"`
}

// Validate checks the command fields
func (c SetContextIDsCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ContextIDs returns the identifiers carried by the command
func (c SetContextIDsCommand) ContextIDs() tenant.ContextIDs {
	return tenant.ContextIDs{
		Preview: strings.TrimSpace(c.Preview),
		Live:    strings.TrimSpace(c.Live),
	}
}

// ReloadTenantsCommand re-reads the tenants source
type ReloadTenantsCommand struct {
	Reason string `json:"reason,omitempty"`
}

// Validate implements bus.Command
func (ReloadTenantsCommand) Validate() error { return nil }
