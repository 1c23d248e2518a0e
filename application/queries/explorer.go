package queries

import (
	"context"
	"strings"

	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/application/services"
	"github.com/timmarsh1987/XMCVisualiser/domain/explorer"
	"github.com/timmarsh1987/XMCVisualiser/pkg/utils"
)

// ListPagesQuery asks for the page inventory of a list of routes
type ListPagesQuery struct {
	SiteName string   `json:"site" validate:"required,max=200"`
	Routes   []string `json:"routes" validate:"required,min=1,dive,required,startswith=/"`
	Language string   `json:"language,omitempty" validate:"omitempty,max=20"`
	TenantID string   `json:"tenant,omitempty"`
	Search   string   `json:"q,omitempty"`
}

// Validate checks the query fields
func (q ListPagesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListPagesResult holds the matching pages and the routes that failed
type ListPagesResult struct {
	Pages     []explorer.Page      `json:"pages"`
	Errors    []services.PageError `json:"errors,omitempty"`
	Total     int                  `json:"total"`
	Truncated bool                 `json:"truncated,omitempty"`
}

// ListComponentsQuery asks for the component inventory of a list of routes
type ListComponentsQuery struct {
	SiteName string   `json:"site" validate:"required,max=200"`
	Routes   []string `json:"routes" validate:"required,min=1,dive,required,startswith=/"`
	Language string   `json:"language,omitempty" validate:"omitempty,max=20"`
	TenantID string   `json:"tenant,omitempty"`
	Search   string   `json:"q,omitempty"`
}

// Validate checks the query fields
func (q ListComponentsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListComponentsResult holds the matching component usages
type ListComponentsResult struct {
	Components []explorer.ComponentUsage `json:"components"`
	Errors     []services.PageError      `json:"errors,omitempty"`
	PageCount  int                       `json:"pageCount"`
	Truncated  bool                      `json:"truncated,omitempty"`
}

// PageLoader loads page sets
type PageLoader interface {
	LoadPages(ctx context.Context, req services.ExplorerRequest) (*services.PageSet, error)
}

// ExplorerHandler handles ListPagesQuery and ListComponentsQuery
type ExplorerHandler struct {
	loader   PageLoader
	contexts ports.ContextSource
}

// NewExplorerHandler creates a new handler instance
func NewExplorerHandler(loader PageLoader, contexts ports.ContextSource) *ExplorerHandler {
	return &ExplorerHandler{loader: loader, contexts: contexts}
}

// HandlePages executes the ListPagesQuery
func (h *ExplorerHandler) HandlePages(ctx context.Context, query ListPagesQuery) (*ListPagesResult, error) {
	set, err := h.load(ctx, query.SiteName, query.Routes, query.Language, query.TenantID)
	if err != nil {
		return nil, err
	}

	pages := explorer.FilterPages(set.Pages, query.Search)
	return &ListPagesResult{
		Pages:     pages,
		Errors:    set.Errors,
		Total:     len(pages),
		Truncated: set.Truncated,
	}, nil
}

// HandleComponents executes the ListComponentsQuery
func (h *ExplorerHandler) HandleComponents(ctx context.Context, query ListComponentsQuery) (*ListComponentsResult, error) {
	set, err := h.load(ctx, query.SiteName, query.Routes, query.Language, query.TenantID)
	if err != nil {
		return nil, err
	}

	usages := explorer.FilterComponents(explorer.BuildComponentUsage(set.Pages), query.Search)
	return &ListComponentsResult{
		Components: usages,
		Errors:     set.Errors,
		PageCount:  len(set.Pages),
		Truncated:  set.Truncated,
	}, nil
}

func (h *ExplorerHandler) load(ctx context.Context, site string, routes []string, language, tenantID string) (*services.PageSet, error) {
	req := services.ExplorerRequest{
		SiteName: site,
		Routes:   routes,
		Language: strings.TrimSpace(language),
	}
	if tenantID != "" {
		ids, err := contextFor(h.contexts, tenantID)
		if err != nil {
			return nil, err
		}
		req.Context = ids
	}
	return h.loader.LoadPages(ctx, req)
}
