// Package sitecore talks to the XM Cloud preview and Experience Edge GraphQL
// endpoints.
package sitecore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// ContextIDParam is the query parameter scoping a call to a tenant context
const ContextIDParam = "sitecoreContextId"

// ClientOptions tune the transport of one environment
type ClientOptions struct {
	Timeout           time.Duration
	BreakerFailures   uint32
	BreakerOpenPeriod time.Duration
	HTTPClient        *http.Client
	Metrics           ports.Metrics
	Logger            *zap.Logger
}

// Client issues GraphQL queries against one environment's endpoint. Calls go
// through a circuit breaker owned by the client; there are no retries.
type Client struct {
	env        layout.Environment
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker
	metrics    ports.Metrics
	logger     *zap.Logger
}

// NewClient creates a client for env at endpoint
func NewClient(env layout.Environment, endpoint string, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerOpenPeriod <= 0 {
		opts.BreakerOpenPeriod = 30 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		env:        env,
		endpoint:   endpoint,
		httpClient: withStatusCheck(env, observability.InstrumentHTTPClient(opts.HTTPClient)),
		timeout:    opts.Timeout,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With(zap.String("environment", string(env))),
	}

	failures := opts.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sitecore-" + string(env),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerOpenPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			c.metrics.Increment(observability.MetricBreakerState, string(env)+"_"+to.String())
		},
		// A GraphQL error payload means the endpoint is healthy
		IsSuccessful: func(err error) bool {
			var gqlErr *GraphQLError
			return err == nil || stderrors.As(err, &gqlErr)
		},
	})

	return c
}

// Environment returns the environment the client addresses
func (c *Client) Environment() layout.Environment {
	return c.env
}

// Endpoint returns the GraphQL endpoint
func (c *Client) Endpoint() string {
	return c.endpoint
}

// BreakerState reports the circuit breaker state
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// GraphQLError is an error payload returned by a reachable endpoint
type GraphQLError struct {
	Message string
}

func (e *GraphQLError) Error() string {
	return "GraphQL error: " + e.Message
}

// Run executes query scoped by contextID and decodes data into resp
func (c *Client) Run(ctx context.Context, contextID, query string, vars map[string]interface{}, resp interface{}) error {
	target, err := c.urlFor(contextID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	observability.Annotate(ctx, "sitecore_environment", string(c.env))

	client := graphql.NewClient(target, graphql.WithHTTPClient(c.httpClient))
	client.Log = func(s string) { c.logger.Debug(s) }

	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, classify(client.Run(ctx, req, resp))
	})
	if err == nil {
		return nil
	}

	var statusErr *StatusError
	switch {
	case stderrors.As(err, &statusErr):
		return statusErr
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%s endpoint unavailable: circuit breaker open", c.env.Label())
	case stderrors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("request timed out after %s", time.Since(start).Round(time.Millisecond))
	default:
		return err
	}
}

func (c *Client) urlFor(contextID string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid %s endpoint: %w", c.env, err)
	}
	q := u.Query()
	q.Set(ContextIDParam, contextID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// StatusError reports a non-2xx HTTP response from an endpoint
type StatusError struct {
	Env        layout.Environment
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s endpoint returned %d", e.Env.Label(), e.StatusCode)
}

// statusTransport fails non-2xx responses before the graphql package decodes
// the body, which it does regardless of status
type statusTransport struct {
	env  layout.Environment
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	res, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		_ = res.Body.Close()
		return nil, &StatusError{Env: t.env, StatusCode: res.StatusCode}
	}
	return res, nil
}

func withStatusCheck(env layout.Environment, hc *http.Client) *http.Client {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = &statusTransport{env: env, base: base}
	return &wrapped
}

// classify separates GraphQL error payloads from transport failures. The
// graphql package reports the former with a "graphql: " prefix.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if msg, ok := strings.CutPrefix(err.Error(), "graphql: "); ok {
		return &GraphQLError{Message: msg}
	}
	return err
}
