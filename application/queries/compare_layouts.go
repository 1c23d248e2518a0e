package queries

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/application/services"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
	"github.com/timmarsh1987/XMCVisualiser/pkg/utils"
)

// CompareLayoutsQuery asks for the preview and published layouts of a route
type CompareLayoutsQuery struct {
	SiteName  string `json:"site" validate:"required,max=200"`
	RoutePath string `json:"route" validate:"required,startswith=/,max=2000"`
	Language  string `json:"language,omitempty" validate:"omitempty,max=20"`
	TenantID  string `json:"tenant,omitempty" validate:"omitempty,max=200"`
}

// Validate checks the query fields
func (q CompareLayoutsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// CompareLayoutsResult is the comparison returned to callers
type CompareLayoutsResult struct {
	ComparisonID string                `json:"comparisonId"`
	Site         string                `json:"site"`
	Route        string                `json:"route"`
	Language     string                `json:"language"`
	Status       layout.Status         `json:"status"`
	Identical    bool                  `json:"identical"`
	Preview      layout.LayoutDocument `json:"preview"`
	Published    layout.LayoutDocument `json:"published"`
	ItemInfo     *layout.ItemInfo      `json:"itemInfo,omitempty"`
	ComparedAt   time.Time             `json:"comparedAt"`
}

// Comparer runs one comparison
type Comparer interface {
	Compare(ctx context.Context, req services.CompareRequest) layout.ComparisonResult
}

// CompareLayoutsHandler handles the CompareLayoutsQuery
type CompareLayoutsHandler struct {
	comparer Comparer
	contexts ports.ContextSource
	now      func() time.Time
}

// NewCompareLayoutsHandler creates a new handler instance
func NewCompareLayoutsHandler(comparer Comparer, contexts ports.ContextSource) *CompareLayoutsHandler {
	return &CompareLayoutsHandler{comparer: comparer, contexts: contexts, now: time.Now}
}

// Handle executes the comparison. Only an unknown tenant is an error; every
// fetch failure is reported inside the result.
func (h *CompareLayoutsHandler) Handle(ctx context.Context, query CompareLayoutsQuery) (*CompareLayoutsResult, error) {
	language := strings.TrimSpace(query.Language)
	if language == "" {
		language = layout.DefaultLanguage
	}

	req := services.CompareRequest{
		SiteName:  strings.TrimSpace(query.SiteName),
		RoutePath: strings.TrimSpace(query.RoutePath),
		Language:  language,
	}
	if query.TenantID != "" {
		ids, err := contextFor(h.contexts, query.TenantID)
		if err != nil {
			return nil, err
		}
		req.Context = ids
	}

	result := h.comparer.Compare(ctx, req)

	return &CompareLayoutsResult{
		ComparisonID: uuid.NewString(),
		Site:         req.SiteName,
		Route:        req.RoutePath,
		Language:     language,
		Status:       result.Status(),
		Identical:    result.Identical(),
		Preview:      result.Preview,
		Published:    result.Published,
		ItemInfo:     result.ItemInfo,
		ComparedAt:   h.now().UTC(),
	}, nil
}

func contextFor(contexts ports.ContextSource, tenantID string) (*tenant.ContextIDs, error) {
	ids, err := contexts.ResolveFor(strings.TrimSpace(tenantID))
	if err != nil {
		return nil, err
	}
	return &ids, nil
}
