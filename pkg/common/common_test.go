package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPaginationParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&page_size=500", nil)
	p := ExtractPaginationParams(r)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.PageSize)

	r = httptest.NewRequest(http.MethodGet, "/?page=-1&page_size=abc", nil)
	assert.Equal(t, DefaultPaginationParams(), ExtractPaginationParams(r))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := Paginate(items, PaginationParams{Page: 2, PageSize: 2})
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrev)

	page, meta = Paginate(items, PaginationParams{Page: 3, PageSize: 2})
	assert.Equal(t, []int{5}, page)
	assert.False(t, meta.HasNext)

	page, _ = Paginate(items, PaginationParams{Page: 9, PageSize: 2})
	assert.Empty(t, page)
}

func TestRespondJSON_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondJSON(rec, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
}

func TestRespondError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondErrorWithMeta(rec, http.StatusBadRequest, &ErrorInfo{Code: "VALIDATION", Message: "bad input"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"VALIDATION","message":"bad input"}}`, rec.Body.String())
}

func TestExtractRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "from-header")
	assert.Equal(t, "from-header", ExtractRequestID(r))

	r = r.WithContext(WithRequestID(r.Context(), "from-context"))
	assert.Equal(t, "from-context", ExtractRequestID(r))
}
