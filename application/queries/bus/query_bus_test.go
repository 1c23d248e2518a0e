package bus

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

type echoQuery struct {
	Value string `json:"value"`
}

func (q echoQuery) Validate() error {
	if q.Value == "" {
		return errors.NewValidationError("value is required")
	}
	return nil
}

type cachedQuery struct{ echoQuery }

func (q cachedQuery) CacheKey() string { return "" }

type memCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func (c *memCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *memCache) Delete(_ context.Context, key string) {}
func (c *memCache) Clear(context.Context)                {}

func echo(calls *int) QueryHandler {
	return Typed(func(_ context.Context, q echoQuery) (string, error) {
		*calls++
		if q.Value == "fail" {
			return "", stderrors.New("upstream down")
		}
		return "echo:" + q.Value, nil
	})
}

func TestQueryBus_Dispatch(t *testing.T) {
	b := NewQueryBus()
	calls := 0
	require.NoError(t, b.Register(echoQuery{}, echo(&calls)))

	got, err := Ask[string](context.Background(), b, echoQuery{Value: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", got)

	assert.Error(t, b.Register(echoQuery{}, echo(&calls)), "duplicate registration")
}

func TestQueryBus_ValidationKeepsAppError(t *testing.T) {
	b := NewQueryBus()
	calls := 0
	require.NoError(t, b.Register(echoQuery{}, echo(&calls)))

	_, err := b.Ask(context.Background(), echoQuery{})

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Zero(t, calls)
}

func TestQueryBus_UnknownQuery(t *testing.T) {
	b := NewQueryBus()
	_, err := b.Ask(context.Background(), cachedQuery{echoQuery{Value: "x"}})
	assert.ErrorContains(t, err, "no handler registered")
}

func TestQueryBus_ResultTypeMismatch(t *testing.T) {
	b := NewQueryBus()
	calls := 0
	require.NoError(t, b.Register(echoQuery{}, echo(&calls)))

	_, err := Ask[int](context.Background(), b, echoQuery{Value: "x"})
	assert.ErrorContains(t, err, "unexpected result")
}

func TestCachingMiddleware(t *testing.T) {
	cache := &memCache{items: map[string]interface{}{}}
	b := NewQueryBus(NewCachingMiddleware(cache, time.Minute))
	calls := 0
	require.NoError(t, b.Register(echoQuery{}, echo(&calls)))
	require.NoError(t, b.Register(cachedQuery{}, Typed(func(_ context.Context, q cachedQuery) (string, error) {
		calls++
		return "cached:" + q.Value, nil
	})))
	ctx := context.Background()

	for range 3 {
		_, err := b.Ask(ctx, echoQuery{Value: "a"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls, "non-cacheable queries always run")

	calls = 0
	for range 3 {
		got, err := b.Ask(ctx, cachedQuery{echoQuery{Value: "a"}})
		require.NoError(t, err)
		assert.Equal(t, "cached:a", got)
	}
	_, err := b.Ask(ctx, cachedQuery{echoQuery{Value: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMetricsAndLoggingMiddleware(t *testing.T) {
	collector := observability.NewCollector("test")
	b := NewQueryBus(NewLoggingMiddleware(zap.NewNop()), NewMetricsMiddleware(collector))
	calls := 0
	require.NoError(t, b.Register(echoQuery{}, echo(&calls)))
	ctx := context.Background()

	_, err := b.Ask(ctx, echoQuery{Value: "ok"})
	require.NoError(t, err)
	_, err = b.Ask(ctx, echoQuery{Value: "fail"})
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.Queries.WithLabelValues("echoQuery", "started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Queries.WithLabelValues("echoQuery", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Queries.WithLabelValues("echoQuery", "error")))
}
