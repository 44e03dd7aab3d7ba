package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// OperationKind distinguishes queries from mutations.
type OperationKind string

const (
	KindQuery    OperationKind = "query"
	KindMutation OperationKind = "mutation"
)

// Operation describes a single GraphQL exchange.
type Operation struct {
	Name      string                 `json:"operationName"`
	Kind      OperationKind          `json:"-"`
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// RequestContext carries outgoing headers. It is a value: WithHeader returns
// a new RequestContext and never modifies the receiver.
type RequestContext struct {
	headers http.Header
}

// NewRequestContext returns an empty RequestContext.
func NewRequestContext() RequestContext {
	return RequestContext{}
}

// Header returns the first value for key, or "".
func (c RequestContext) Header(key string) string {
	return c.headers.Get(key)
}

// HasHeader reports whether key is present, even with an empty value.
func (c RequestContext) HasHeader(key string) bool {
	_, ok := c.headers[http.CanonicalHeaderKey(key)]
	return ok
}

// WithHeader returns a copy of c with key set to value.
func (c RequestContext) WithHeader(key, value string) RequestContext {
	h := c.headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(key, value)
	return RequestContext{headers: h}
}

// Headers returns a copy of the headers.
func (c RequestContext) Headers() http.Header {
	h := c.headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	return h
}

// Request is what flows through the stage chain.
type Request struct {
	Operation Operation
	Context   RequestContext
}

// NewRequest wraps op with an empty RequestContext.
func NewRequest(op Operation) Request {
	return Request{Operation: op}
}

// WithRequestContext returns a copy of r carrying c.
func (r Request) WithRequestContext(c RequestContext) Request {
	r.Context = c
	return r
}

// Location points into the GraphQL document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is one structured error returned by the backend.
type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Locations  []Location             `json:"locations,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// Code returns extensions.code when the backend supplied one.
func (e GraphQLError) Code() string {
	if code, ok := e.Extensions["code"].(string); ok {
		return code
	}
	return ""
}

// Response is a decoded GraphQL response.
type Response struct {
	Data       json.RawMessage        `json:"data,omitempty"`
	Errors     []GraphQLError         `json:"errors,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
	StatusCode int                    `json:"-"`
}

// Decode unmarshals the data member into v.
func (r *Response) Decode(v interface{}) error {
	if r == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// Handler issues a request and returns its response. It is the continuation
// handed to every Link.
type Handler func(ctx context.Context, req Request) (*Response, error)

// Link is one stage of the chain. It may inspect or replace the request
// before calling next, and observe the result after next returns.
type Link func(ctx context.Context, req Request, next Handler) (*Response, error)

// TokenAccessor returns the current access token. "" means no token is
// available; an error is treated the same way by the auth stage. It is called
// once per operation and must be safe for concurrent use.
type TokenAccessor func(ctx context.Context) (string, error)
