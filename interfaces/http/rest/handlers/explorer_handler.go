package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/application/queries"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/pkg/common"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

// ExplorerHandler serves the page and component inventories
type ExplorerHandler struct {
	queryBus    *querybus.QueryBus
	errors      *errors.ErrorHandler
	defaultSite string
	logger      *zap.Logger
}

// NewExplorerHandler creates a new explorer handler
func NewExplorerHandler(queryBus *querybus.QueryBus, eh *errors.ErrorHandler, defaultSite string, logger *zap.Logger) *ExplorerHandler {
	return &ExplorerHandler{
		queryBus:    queryBus,
		errors:      eh,
		defaultSite: defaultSite,
		logger:      logger,
	}
}

// ListPages handles GET /explorer/pages?site=&routes=&language=&q=&page=&page_size=
func (h *ExplorerHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := queries.ListPagesQuery{
		SiteName: h.site(params.Get("site")),
		Routes:   parseRoutes(params["routes"], params["route"]),
		Language: params.Get("language"),
		TenantID: params.Get("tenant"),
		Search:   params.Get("q"),
	}
	r = r.WithContext(common.WithTenantID(r.Context(), query.TenantID))

	result, err := querybus.Ask[*queries.ListPagesResult](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	// Total counts every match, pagination only trims the slice
	var pagination *common.PaginationInfo
	result.Pages, pagination = common.Paginate(result.Pages, common.ExtractPaginationParams(r))
	common.RespondWithMeta(w, http.StatusOK, result, &common.MetaInfo{
		RequestID:  common.ExtractRequestID(r),
		Pagination: pagination,
	})
}

// ListComponents handles GET /explorer/components with the same parameters
func (h *ExplorerHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := queries.ListComponentsQuery{
		SiteName: h.site(params.Get("site")),
		Routes:   parseRoutes(params["routes"], params["route"]),
		Language: params.Get("language"),
		TenantID: params.Get("tenant"),
		Search:   params.Get("q"),
	}
	r = r.WithContext(common.WithTenantID(r.Context(), query.TenantID))

	result, err := querybus.Ask[*queries.ListComponentsResult](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var pagination *common.PaginationInfo
	result.Components, pagination = common.Paginate(result.Components, common.ExtractPaginationParams(r))
	common.RespondWithMeta(w, http.StatusOK, result, &common.MetaInfo{
		RequestID:  common.ExtractRequestID(r),
		Pagination: pagination,
	})
}

func (h *ExplorerHandler) site(site string) string {
	if site = strings.TrimSpace(site); site != "" {
		return site
	}
	return h.defaultSite
}

// parseRoutes accepts comma separated lists and repeated parameters
func parseRoutes(lists ...[]string) []string {
	var routes []string
	for _, list := range lists {
		for _, value := range list {
			for _, route := range strings.Split(value, ",") {
				if route = strings.TrimSpace(route); route != "" {
					routes = append(routes, route)
				}
			}
		}
	}
	return routes
}
