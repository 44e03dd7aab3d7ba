package gqlclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/novo-auth/pkg/async"
	"github.com/platinummonkey/novo-auth/pkg/observability"
	"github.com/platinummonkey/novo-auth/pkg/transport"
)

// EndpointEnv is read when Config.Endpoint is empty.
const EndpointEnv = "GRAPHQL_ENDPOINT"

const (
	scopeClient    = "graphql:client"
	scopeQueries   = "graphql:queries"
	scopeMutations = "graphql:mutations"

	defaultCacheSize = 512
	defaultCacheTTL  = 5 * time.Minute
	watchTimeout     = 30 * time.Second
)

// FetchPolicy decides how a query uses the response cache.
type FetchPolicy string

const (
	// CacheAndNetwork returns cached data first, if any, and then the network
	// result. Default for Watch.
	CacheAndNetwork FetchPolicy = "cache-and-network"
	// NetworkOnly always asks the backend and refreshes the cache. Default
	// for Query.
	NetworkOnly FetchPolicy = "network-only"
	// CacheFirst asks the backend only on a cache miss.
	CacheFirst FetchPolicy = "cache-first"
	// NoCache asks the backend and leaves the cache alone.
	NoCache FetchPolicy = "no-cache"
)

// Config configures a Client.
type Config struct {
	// Endpoint overrides the GRAPHQL_ENDPOINT environment variable.
	Endpoint       string
	TokenAccessor  transport.TokenAccessor
	Observer       observability.Observer
	Metrics        *observability.Metrics
	Logger         *observability.Logger
	HTTPClient     *http.Client
	TracerProvider trace.TracerProvider
	CacheSize      int
	CacheTTL       time.Duration
}

// Client issues catalog documents through a transport pipeline and keeps a
// response cache for queries. Cache entries are scoped to the bearer token
// the accessor resolves, so one Client can serve many users.
type Client struct {
	pipeline *transport.Pipeline
	accessor transport.TokenAccessor
	cache    *lru.LRU[string, *transport.Response]
	observer observability.Observer
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// Result is one delivery on a Watch channel.
type Result struct {
	Response  *transport.Response
	FromCache bool
	Err       error
}

// New resolves the endpoint and builds the pipeline. A missing endpoint is
// reported as "missing-endpoint" and returned as a
// *transport.ConfigurationError.
func New(cfg Config) (*Client, error) {
	obs := cfg.Observer
	if obs == nil {
		obs = observability.NopObserver{}
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(os.Getenv(EndpointEnv))
	}
	if endpoint == "" {
		obs.Error(scopeClient, "missing-endpoint", nil)
		return nil, &transport.ConfigurationError{Field: "endpoint", Message: EndpointEnv + " is not defined"}
	}

	opts := []transport.Option{
		transport.WithObserver(obs),
		transport.WithMetrics(cfg.Metrics),
		transport.WithHTTPClient(cfg.HTTPClient),
		transport.WithTracerProvider(cfg.TracerProvider),
	}
	if cfg.TokenAccessor != nil {
		opts = append(opts, transport.WithTokenAccessor(cfg.TokenAccessor))
	}

	pipeline, err := transport.Build(endpoint, opts...)
	if err != nil {
		obs.Error(scopeClient, "invalid-endpoint", observability.Fields{"error": err.Error()})
		return nil, err
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	obs.Info(scopeClient, "create", observability.Fields{"endpoint": endpoint})

	return &Client{
		pipeline: pipeline,
		accessor: cfg.TokenAccessor,
		cache:    lru.NewLRU[string, *transport.Response](size, nil, ttl),
		observer: obs,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}, nil
}

// Pipeline returns the underlying transport pipeline.
func (c *Client) Pipeline() *transport.Pipeline {
	return c.pipeline
}

// Query runs a query document. The default policy is NetworkOnly. A single
// answer is returned, so CacheAndNetwork behaves like CacheFirst here.
func (c *Client) Query(ctx context.Context, doc Document, variables map[string]interface{}, policy ...FetchPolicy) (*transport.Response, error) {
	p := NetworkOnly
	if len(policy) > 0 {
		p = policy[0]
	}
	c.observer.Info(scopeQueries, "invoke", observability.Fields{"operation": doc.Name})

	key := c.cacheKey(ctx, doc.Name, variables)

	switch p {
	case CacheFirst, CacheAndNetwork:
		if resp, ok := c.cached(doc.Name, key); ok {
			return resp, nil
		}
	}

	return c.fetch(ctx, doc, variables, key, p != NoCache)
}

// Mutate runs a mutation. Mutations never read or write the cache.
func (c *Client) Mutate(ctx context.Context, doc Document, variables map[string]interface{}) (*transport.Response, error) {
	c.observer.Info(scopeMutations, "invoke", observability.Fields{"operation": doc.Name})
	return c.pipeline.Execute(ctx, doc.Operation(variables))
}

// Watch delivers the cached result for doc first, if there is one, then the
// network result, and closes the channel. The default policy is
// CacheAndNetwork.
func (c *Client) Watch(ctx context.Context, doc Document, variables map[string]interface{}, policy ...FetchPolicy) <-chan Result {
	p := CacheAndNetwork
	if len(policy) > 0 {
		p = policy[0]
	}
	c.observer.Info(scopeQueries, "invoke", observability.Fields{"operation": doc.Name, "watch": true})

	// Room for both deliveries so the goroutine never blocks on a reader
	// that went away.
	out := make(chan Result, 2)
	key := c.cacheKey(ctx, doc.Name, variables)

	async.SafeGoNoError(ctx, c.logger, watchTimeout, "watch "+doc.Name, func(ctx context.Context) {
		defer close(out)

		if p == CacheAndNetwork || p == CacheFirst {
			if resp, ok := c.cached(doc.Name, key); ok {
				out <- Result{Response: resp, FromCache: true}
				if p == CacheFirst {
					return
				}
			}
		}

		resp, err := c.fetch(ctx, doc, variables, key, p != NoCache)
		out <- Result{Response: resp, Err: err}
	})

	return out
}

// Invalidate drops every cached response.
func (c *Client) Invalidate() {
	c.cache.Purge()
}

func (c *Client) cached(operation, key string) (*transport.Response, bool) {
	if key == "" {
		return nil, false
	}
	resp, ok := c.cache.Get(key)
	if ok {
		c.metrics.RecordCacheHit(operation)
		return resp, true
	}
	c.metrics.RecordCacheMiss(operation)
	return nil, false
}

func (c *Client) fetch(ctx context.Context, doc Document, variables map[string]interface{}, key string, store bool) (*transport.Response, error) {
	resp, err := c.pipeline.Execute(ctx, doc.Operation(variables))
	if err == nil && store && resp != nil && key != "" {
		c.cache.Add(key, resp)
	}
	return resp, err
}

// cacheKey scopes a query key to the caller's identity. Without an accessor
// every caller shares one identity. An accessor error makes the query
// uncacheable.
func (c *Client) cacheKey(ctx context.Context, operation string, variables map[string]interface{}) string {
	identity := ""
	if c.accessor != nil {
		token, err := c.accessor(ctx)
		if err != nil {
			return ""
		}
		identity = tokenIdentity(token)
	}
	return cacheKey(identity, operation, variables)
}

// tokenIdentity returns a short digest of token; raw tokens are never used as
// cache keys. An empty token is the anonymous identity.
func tokenIdentity(token string) string {
	if token == "" {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// cacheKey identifies a query by identity, name and variables. encoding/json
// writes map keys in sorted order, so equal variables give equal keys. ""
// means the query cannot be cached.
func cacheKey(identity, operation string, variables map[string]interface{}) string {
	key := operation
	if identity != "" {
		key = identity + "|" + operation
	}
	if len(variables) == 0 {
		return key
	}
	data, err := json.Marshal(variables)
	if err != nil {
		return ""
	}
	return key + ":" + string(data)
}
