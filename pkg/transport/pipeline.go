package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/novo-auth/pkg/contextkeys"
	"github.com/platinummonkey/novo-auth/pkg/observability"
)

const tracerName = "github.com/platinummonkey/novo-auth/pkg/transport"

// Stage names in chain order, outermost first.
const (
	StageTracing = "tracing"
	StageRetry   = "retry"
	StageError   = "error"
	StageAuth    = "auth"
	StageHTTP    = "http"
)

type options struct {
	accessor       TokenAccessor
	observer       observability.Observer
	metrics        *observability.Metrics
	httpClient     *http.Client
	tracerProvider trace.TracerProvider
	retry          *RetryPolicy
	sleep          sleepFunc
}

// Option configures Build.
type Option func(*options)

// WithTokenAccessor sets the accessor the auth stage calls on every operation.
func WithTokenAccessor(accessor TokenAccessor) Option {
	return func(o *options) {
		o.accessor = accessor
	}
}

// WithObserver sets where stage events are reported. The default discards
// them.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithMetrics records operation metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHTTPClient replaces the client used by the transport stage. The client
// should carry a cookie jar if session cookies are expected.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTracerProvider sets the provider for stage spans. The global provider is
// used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

func withRetryPolicy(p *RetryPolicy) Option {
	return func(o *options) {
		o.retry = p
	}
}

func withSleeper(s sleepFunc) Option {
	return func(o *options) {
		o.sleep = s
	}
}

// Pipeline is the composed stage chain for one endpoint. It holds no mutable
// state after Build and is safe for concurrent use.
type Pipeline struct {
	endpoint string
	stages   []string
	handler  Handler
	observer observability.Observer
	metrics  *observability.Metrics
}

// Build validates endpoint and composes the stage chain around it. A
// *ConfigurationError is returned, and nothing else is constructed, when the
// endpoint is empty or is not an absolute http(s) URL.
func Build(endpoint string, opts ...Option) (*Pipeline, error) {
	endpoint = strings.TrimSpace(endpoint)
	if err := validateEndpoint(endpoint); err != nil {
		return nil, err
	}

	o := options{
		observer: observability.NopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.httpClient == nil {
		o.httpClient = newHTTPClient(o.tracerProvider)
	}
	if o.retry == nil {
		o.retry = NewRetryPolicy(DefaultRetryConfig())
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}

	transport := &httpTransport{endpoint: endpoint, client: o.httpClient}

	named := []struct {
		name string
		link Link
	}{
		{StageTracing, tracingLink(o.tracerProvider.Tracer(tracerName), o.observer)},
		{StageRetry, retryLink(o.retry, o.sleep, o.observer, o.metrics)},
		{StageError, errorLink(o.observer, o.metrics)},
		{StageAuth, authLink(o.accessor, o.observer, o.metrics)},
		{StageHTTP, transport.link},
	}

	links := make([]Link, 0, len(named))
	stages := make([]string, 0, len(named))
	for _, n := range named {
		links = append(links, n.link)
		stages = append(stages, n.name)
	}

	o.observer.Info(scopePipeline, "create", observability.Fields{
		"endpoint": endpoint,
		"stages":   stages,
	})

	return &Pipeline{
		endpoint: endpoint,
		stages:   stages,
		handler:  Chain(links...),
		observer: o.observer,
		metrics:  o.metrics,
	}, nil
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return &ConfigurationError{Field: "endpoint", Message: "GraphQL endpoint is required"}
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return &ConfigurationError{Field: "endpoint", Message: err.Error()}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Field: "endpoint", Message: "must be an absolute http or https URL"}
	}
	return nil
}

// Chain composes links so that the first one is outermost. The last link is
// called with a terminal handler that never succeeds, so it must not call
// next.
func Chain(links ...Link) Handler {
	var h Handler = func(context.Context, Request) (*Response, error) {
		return nil, errors.New("transport: end of chain reached")
	}
	for i := len(links) - 1; i >= 0; i-- {
		link, next := links[i], h
		h = func(ctx context.Context, req Request) (*Response, error) {
			return link(ctx, req, next)
		}
	}
	return h
}

// Endpoint returns the validated endpoint.
func (p *Pipeline) Endpoint() string {
	return p.endpoint
}

// Stages returns the stage names, outermost first.
func (p *Pipeline) Stages() []string {
	out := make([]string, len(p.stages))
	copy(out, p.stages)
	return out
}

// Execute issues op with an empty request context.
func (p *Pipeline) Execute(ctx context.Context, op Operation) (*Response, error) {
	return p.Do(ctx, NewRequest(op))
}

// Do runs req through the chain. When the backend returns errors the response
// is returned together with an *ApplicationError.
func (p *Pipeline) Do(ctx context.Context, req Request) (*Response, error) {
	if contextkeys.GetRequestID(ctx) == "" {
		ctx = contextkeys.WithRequestID(ctx, uuid.New().String())
	}

	start := time.Now()
	resp, err := p.handler(ctx, req)

	outcome := "success"
	switch {
	case IsNetworkError(err):
		outcome = "network_error"
	case err != nil:
		outcome = "error"
	case resp != nil && len(resp.Errors) > 0:
		outcome = "application_error"
		err = &ApplicationError{Operation: req.Operation.Name, Errors: resp.Errors}
	}
	p.metrics.RecordOperation(req.Operation.Name, outcome, time.Since(start))

	return resp, err
}
