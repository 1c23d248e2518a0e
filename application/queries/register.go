package queries

import (
	"github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
)

// Handlers groups the query handlers served by the query bus
type Handlers struct {
	Compare  *CompareLayoutsHandler
	Explorer *ExplorerHandler
	Tenants  *ListTenantsHandler
}

// Register binds every handler to its query type
func (h *Handlers) Register(b *bus.QueryBus) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandler
	}{
		{CompareLayoutsQuery{}, bus.Typed(h.Compare.Handle)},
		{ListPagesQuery{}, bus.Typed(h.Explorer.HandlePages)},
		{ListComponentsQuery{}, bus.Typed(h.Explorer.HandleComponents)},
		{ListTenantsQuery{}, bus.Typed(h.Tenants.Handle)},
	}
	for _, r := range registrations {
		if err := b.Register(r.query, r.handler); err != nil {
			return err
		}
	}
	return nil
}
