package sitecore

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
)

func newTestFetcher(t *testing.T, env layout.Environment, reply http.HandlerFunc) (*Fetcher, *graphqlServer) {
	t.Helper()
	srv := newGraphQLServer(t, reply)
	return NewFetcher(NewClient(env, srv.URL, ClientOptions{}), nil), srv
}

func homeRequest() ports.LayoutRequest {
	return ports.LayoutRequest{ContextID: "ctx-1", SiteName: "website", RoutePath: "/"}
}

func TestFetchLayout_RenderedAsString(t *testing.T) {
	fetcher, srv := newTestFetcher(t, layout.EnvironmentPreview,
		replyJSON(`{"data":{"layout":{"item":{"rendered":"{\"sitecore\":{\"route\":{\"name\":\"home\"}}}"}}}}`))

	doc := fetcher.FetchLayout(context.Background(), homeRequest())

	require.True(t, doc.Ok(), doc.Error)
	assert.JSONEq(t, `{"sitecore":{"route":{"name":"home"}}}`, doc.Rendered)

	call := srv.lastCall()
	assert.Equal(t, "ctx-1", call.ContextID)
	assert.Contains(t, call.Query, "GetItemLayout")
	assert.Equal(t, map[string]interface{}{
		"siteName":  "website",
		"routePath": "/",
		"language":  "en",
	}, call.Variables)
}

func TestFetchLayout_RenderedAsObject(t *testing.T) {
	fetcher, _ := newTestFetcher(t, layout.EnvironmentPublished,
		replyJSON(`{"data":{"layout":{"item":{"rendered":{"sitecore":{"route":{"name":"home"}}}}}}}`))

	doc := fetcher.FetchLayout(context.Background(), homeRequest())

	require.True(t, doc.Ok(), doc.Error)
	assert.JSONEq(t, `{"sitecore":{"route":{"name":"home"}}}`, doc.Rendered)
}

func TestFetchLayout_NoLayout(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "null layout", body: `{"data":{"layout":null}}`},
		{name: "null item", body: `{"data":{"layout":{"item":null}}}`},
		{name: "null rendered", body: `{"data":{"layout":{"item":{"rendered":null}}}}`},
		{name: "empty string", body: `{"data":{"layout":{"item":{"rendered":""}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, _ := newTestFetcher(t, layout.EnvironmentPublished, replyJSON(tt.body))

			doc := fetcher.FetchLayout(context.Background(), homeRequest())

			assert.Empty(t, doc.Rendered)
			assert.Equal(t, "No layout data found in published environment", doc.Error)
		})
	}
}

func TestFetchLayout_FailsFastWithoutIO(t *testing.T) {
	tests := []struct {
		name string
		req  ports.LayoutRequest
		want string
	}{
		{
			name: "missing context",
			req:  ports.LayoutRequest{SiteName: "website", RoutePath: "/"},
			want: "Preview context ID is not configured",
		},
		{
			name: "blank context",
			req:  ports.LayoutRequest{ContextID: "  ", SiteName: "website", RoutePath: "/"},
			want: "Preview context ID is not configured",
		},
		{
			name: "missing site",
			req:  ports.LayoutRequest{ContextID: "ctx", RoutePath: "/"},
			want: "site name is required",
		},
		{
			name: "missing route",
			req:  ports.LayoutRequest{ContextID: "ctx", SiteName: "website"},
			want: "route path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, srv := newTestFetcher(t, layout.EnvironmentPreview, replyJSON(`{"data":{}}`))

			doc := fetcher.FetchLayout(context.Background(), tt.req)

			assert.Equal(t, tt.want, doc.Error)
			assert.Zero(t, srv.hits.Load())
		})
	}
}

func TestFetchLayout_ErrorsBecomeDocuments(t *testing.T) {
	t.Run("graphql error", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, layout.EnvironmentPreview,
			replyJSON(`{"errors":[{"message":"Site 'nope' not found"}]}`))

		doc := fetcher.FetchLayout(context.Background(), homeRequest())
		assert.Equal(t, "GraphQL error: Site 'nope' not found", doc.Error)
	})

	t.Run("upstream status", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, layout.EnvironmentPreview, replyStatus(http.StatusServiceUnavailable))

		doc := fetcher.FetchLayout(context.Background(), homeRequest())
		assert.True(t, doc.Failed())
		assert.Equal(t, "Preview endpoint returned 503", doc.Error)
	})

	t.Run("unauthorized with layout body", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, layout.EnvironmentPreview, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"data":{"layout":{"item":{"rendered":{"sitecore":{"route":{"name":"home"}}}}}}}`))
		})

		doc := fetcher.FetchLayout(context.Background(), homeRequest())
		assert.True(t, doc.Failed())
		assert.Equal(t, "Preview endpoint returned 401", doc.Error)
	})

	t.Run("unexpected rendered type", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, layout.EnvironmentPreview,
			replyJSON(`{"data":{"layout":{"item":{"rendered":42}}}}`))

		doc := fetcher.FetchLayout(context.Background(), homeRequest())
		assert.True(t, doc.Failed())
		assert.Contains(t, doc.Error, "rendered")
	})
}

func TestFetchLayout_LanguagePassedThrough(t *testing.T) {
	fetcher, srv := newTestFetcher(t, layout.EnvironmentPreview,
		replyJSON(`{"data":{"layout":{"item":{"rendered":"{}"}}}}`))

	req := homeRequest()
	req.Language = "da-DK"
	doc := fetcher.FetchLayout(context.Background(), req)

	require.True(t, doc.Ok())
	assert.Equal(t, "{}", doc.Rendered)
	assert.Equal(t, "da-DK", srv.lastCall().Variables["language"])
}

func TestFetchItemInfo(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		fetcher, srv := newTestFetcher(t, layout.EnvironmentPreview,
			replyJSON(`{"data":{"layout":{"item":{"name":"about","displayName":"About us","path":"/sitecore/content/site/home/about"}}}}`))

		info, err := fetcher.FetchItemInfo(context.Background(), homeRequest())
		require.NoError(t, err)
		assert.Equal(t, &layout.ItemInfo{
			Name:        "about",
			DisplayName: "About us",
			Path:        "/sitecore/content/site/home/about",
		}, info)
		assert.Contains(t, srv.lastCall().Query, "GetItemInfo")
	})

	t.Run("path from url", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, layout.EnvironmentPreview,
			replyJSON(`{"data":{"layout":{"item":{"name":"about","url":{"path":"/about"}}}}}`))

		info, err := fetcher.FetchItemInfo(context.Background(), homeRequest())
		require.NoError(t, err)
		assert.Equal(t, "/about", info.Path)
	})

	t.Run("missing item", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, layout.EnvironmentPreview, replyJSON(`{"data":{"layout":{"item":null}}}`))

		info, err := fetcher.FetchItemInfo(context.Background(), homeRequest())
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("not configured", func(t *testing.T) {
		fetcher, srv := newTestFetcher(t, layout.EnvironmentPreview, replyJSON(`{"data":{}}`))

		_, err := fetcher.FetchItemInfo(context.Background(), ports.LayoutRequest{SiteName: "website", RoutePath: "/"})
		require.EqualError(t, err, "Preview context ID is not configured")
		assert.Zero(t, srv.hits.Load())
	})
}

func TestFetchItemByPath(t *testing.T) {
	fetcher, srv := newTestFetcher(t, layout.EnvironmentPublished,
		replyJSON(`{"data":{"item":{"id":"ABC","name":"home","path":"/sitecore/content/site/home"}}}`))

	info, err := fetcher.FetchItemByPath(context.Background(), "live-1", "/sitecore/content/site/home", "")
	require.NoError(t, err)
	assert.Equal(t, "home", info.Name)

	call := srv.lastCall()
	assert.Equal(t, "live-1", call.ContextID)
	assert.Equal(t, "en", call.Variables["language"])
	assert.Equal(t, "/sitecore/content/site/home", call.Variables["itemId"])

	_, err = fetcher.FetchItemByPath(context.Background(), "live-1", " ", "en")
	assert.EqualError(t, err, "item path is required")
}

func TestProbe(t *testing.T) {
	t.Run("schema answered", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, layout.EnvironmentPreview,
			replyJSON(`{"data":{"__schema":{"queryType":{"name":"Query"}}}}`))
		assert.NoError(t, fetcher.Probe(context.Background(), "ctx"))
	})

	t.Run("no schema", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, layout.EnvironmentPublished, replyJSON(`{"data":{}}`))
		assert.EqualError(t, fetcher.Probe(context.Background(), "ctx"), "Published endpoint returned no schema")
	})

	t.Run("no context", func(t *testing.T) {
		fetcher, srv := newTestFetcher(t, layout.EnvironmentPublished, replyJSON(`{"data":{}}`))
		assert.EqualError(t, fetcher.Probe(context.Background(), ""), "Published context ID is not configured")
		assert.Zero(t, srv.hits.Load())
	})
}
