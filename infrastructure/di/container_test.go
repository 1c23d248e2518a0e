package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/timmarsh1987/XMCVisualiser/application/commands"
	"github.com/timmarsh1987/XMCVisualiser/application/queries"
	querybus "github.com/timmarsh1987/XMCVisualiser/application/queries/bus"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/config"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/sitecore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Keep-alive connections to httptest servers close asynchronously
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func testConfig(env string) *config.Config {
	cfg := config.Default()
	cfg.Environment = env
	cfg.LogLevel = "error"
	cfg.WatchTenants = false
	return cfg
}

func newContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	c, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Shutdown(context.Background()))
	})
	return c
}

// fakeEdge answers schema, layout and item queries the way the edge endpoint does
func fakeEdge(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var contexts []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		contexts = append(contexts, r.URL.Query().Get(sitecore.ContextIDParam))
		mu.Unlock()

		var body struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(body.Query, "__schema"):
			_, _ = w.Write([]byte(`{"data":{"__schema":{"queryType":{"name":"Query"}}}}`))
		case strings.Contains(body.Query, "GetItemInfo"):
			_, _ = w.Write([]byte(`{"data":{"layout":{"item":{"name":"home","displayName":"Home","path":"/sitecore/content/site/home"}}}}`))
		default:
			_, _ = w.Write([]byte(`{"data":{"layout":{"item":{"rendered":{"sitecore":{"route":{"name":"home","placeholders":{}}}}}}}}`))
		}
	}))
	t.Cleanup(srv.Close)

	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), contexts...)
	}
}

func TestInitializeContainer_Development(t *testing.T) {
	c := newContainer(t, testConfig("development"))

	assert.Len(t, c.Registry.Tenants(), 2)
	assert.Nil(t, c.Watcher)
	assert.Nil(t, c.JWT)
	assert.NotNil(t, c.RateLimiter)

	result := c.Bootstrap.Initialize(context.Background())
	assert.True(t, result.Ready(), "development context is ready without probing")

	ctx := context.Background()
	tenants, err := querybus.Ask[*queries.ListTenantsResult](ctx, c.QueryBus, queries.ListTenantsQuery{})
	require.NoError(t, err)
	assert.Len(t, tenants.Tenants, 2)
	assert.Equal(t, "dev-preview-context", tenants.Active.Preview)

	require.NoError(t, c.CommandBus.Send(ctx, commands.SelectTenantCommand{TenantID: "dev-tenant-002"}))
	assert.Equal(t, "test-preview-context", c.Registry.Resolve().Preview)
	assert.Equal(t, sitecore.StateIdle, c.Bootstrap.State(), "tenant changes reset the bootstrap")
}

func TestInitializeContainer_ConfiguredContext(t *testing.T) {
	srv, seen := fakeEdge(t)

	cfg := testConfig("test")
	cfg.PreviewEndpoint = srv.URL
	cfg.LiveEndpoint = srv.URL
	cfg.PreviewContextID = "preview-ctx"
	cfg.LiveContextID = "live-ctx"
	c := newContainer(t, cfg)

	ctx := context.Background()
	result := c.Bootstrap.Initialize(ctx)
	require.True(t, result.Ready(), "%v", result.Err)
	assert.ElementsMatch(t, []string{"preview-ctx", "live-ctx"}, seen())

	compared, err := querybus.Ask[*queries.CompareLayoutsResult](ctx, c.QueryBus, queries.CompareLayoutsQuery{
		SiteName:  "website",
		RoutePath: "/",
	})
	require.NoError(t, err)
	assert.Equal(t, layout.StatusComplete, compared.Status)
	assert.True(t, compared.Identical)
	require.NotNil(t, compared.ItemInfo)
	assert.Equal(t, "Home", compared.ItemInfo.DisplayName)
}

func TestInitializeContainer_UnconfiguredIsNotReady(t *testing.T) {
	cfg := testConfig("test")
	c := newContainer(t, cfg)

	result := c.Bootstrap.Initialize(context.Background())
	assert.Equal(t, sitecore.StateFailed, result.State)
	assert.Contains(t, result.Err.Error(), "no context identifiers configured")
}

func TestInitializeContainer_WatchesTenantsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	write := func(doc string) {
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	}
	write("resourceAccess:\n  - {tenantId: a, context: {preview: pa, live: la}}\n")

	cfg := testConfig("test")
	cfg.TenantsFile = path
	cfg.WatchTenants = true
	c := newContainer(t, cfg)
	require.NotNil(t, c.Watcher)
	assert.Len(t, c.Registry.Tenants(), 1)

	write("resourceAccess:\n  - {tenantId: a, context: {preview: pa, live: la}}\n  - {tenantId: b, context: {preview: pb, live: lb}}\n")

	assert.Eventually(t, func() bool {
		return len(c.Registry.Tenants()) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestInitializeContainer_InvalidTenantsFile(t *testing.T) {
	cfg := testConfig("test")
	cfg.TenantsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := InitializeContainer(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load tenants")
}

func TestInitializeContainer_AuthEnabled(t *testing.T) {
	cfg := testConfig("test")
	cfg.JWTSecret = "secret"
	cfg.RateLimitRequests = 0
	c := newContainer(t, cfg)

	assert.NotNil(t, c.JWT)
	assert.Nil(t, c.RateLimiter)
}

func TestMetricsNamespace(t *testing.T) {
	assert.Equal(t, "xmcvisualiser", metricsNamespace("XMCVisualiser"))
	assert.Equal(t, "xmc_visualiser_prod", metricsNamespace("XMC Visualiser/prod"))
}
