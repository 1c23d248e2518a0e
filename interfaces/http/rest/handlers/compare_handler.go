package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/application/queries"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/pkg/common"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

const maxBodyBytes = 1 << 20

// CompareHandler serves layout comparisons
type CompareHandler struct {
	queryBus    *querybus.QueryBus
	errors      *errors.ErrorHandler
	defaultSite string
	logger      *zap.Logger
}

// NewCompareHandler creates a new compare handler. defaultSite is used when
// a request names no site.
func NewCompareHandler(queryBus *querybus.QueryBus, eh *errors.ErrorHandler, defaultSite string, logger *zap.Logger) *CompareHandler {
	return &CompareHandler{
		queryBus:    queryBus,
		errors:      eh,
		defaultSite: defaultSite,
		logger:      logger,
	}
}

// CompareQuery handles GET /compare?site=&route=&language=&tenant=
func (h *CompareHandler) CompareQuery(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	h.compare(w, r, queries.CompareLayoutsQuery{
		SiteName:  params.Get("site"),
		RoutePath: params.Get("route"),
		Language:  params.Get("language"),
		TenantID:  params.Get("tenant"),
	})
}

// CompareBody handles POST /compare with a JSON body
func (h *CompareHandler) CompareBody(w http.ResponseWriter, r *http.Request) {
	var query queries.CompareLayoutsQuery
	if err := common.ParseJSONBody(w, r, &query, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, errors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}
	h.compare(w, r, query)
}

// compare always answers 200 for a valid request; fetch failures are part
// of the result
func (h *CompareHandler) compare(w http.ResponseWriter, r *http.Request, query queries.CompareLayoutsQuery) {
	if query.SiteName == "" {
		query.SiteName = h.defaultSite
	}
	r = r.WithContext(common.WithTenantID(r.Context(), query.TenantID))

	result, err := querybus.Ask[*queries.CompareLayoutsResult](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if result.Preview.Failed() || result.Published.Failed() {
		h.logger.Debug("Comparison completed with failures",
			zap.String("comparison_id", result.ComparisonID),
			zap.String("status", string(result.Status)),
			zap.String("preview_error", result.Preview.Error),
			zap.String("published_error", result.Published.Error),
		)
	}

	common.RespondWithMeta(w, http.StatusOK, result, &common.MetaInfo{
		RequestID: common.ExtractRequestID(r),
		Version:   "v1",
	})
}
