package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

// captureNext records the request each stage forwards.
type captureNext struct {
	calls []Request
	resp  *Response
	err   error
}

func (c *captureNext) handle(_ context.Context, req Request) (*Response, error) {
	c.calls = append(c.calls, req)
	return c.resp, c.err
}

func TestTracingLink(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	rec := observability.NewRecorder()

	link := tracingLink(tp.Tracer("test"), rec)
	next := &captureNext{resp: &Response{Data: []byte(`{}`)}}
	req := NewRequest(Operation{Name: "SessionStatus", Kind: KindQuery})

	resp, err := link(context.Background(), req, next.handle)

	require.NoError(t, err)
	assert.Same(t, next.resp, resp)
	require.Len(t, next.calls, 1)
	assert.Equal(t, req, next.calls[0])

	events := rec.Find(scopeTrace, "forward")
	require.Len(t, events, 1)
	assert.Equal(t, "SessionStatus", events[0].Fields["operation"])

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphql SessionStatus", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestTracingLink_MarksFailedSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	link := tracingLink(tp.Tracer("test"), observability.NopObserver{})
	next := &captureNext{err: &NetworkError{Message: "refused"}}

	_, err := link(context.Background(), NewRequest(Operation{Name: "Me"}), next.handle)

	assert.Error(t, err)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestErrorLink_ReportsEachGraphQLError(t *testing.T) {
	rec := observability.NewRecorder()
	link := errorLink(rec, nil)
	next := &captureNext{resp: &Response{Errors: []GraphQLError{
		{Message: "invalid credentials", Path: []interface{}{"authLogin"}, Extensions: map[string]interface{}{"code": "UNAUTHENTICATED"}},
		{Message: "rate limited"},
	}}}

	resp, err := link(context.Background(), NewRequest(Operation{Name: "AuthLogin"}), next.handle)

	require.NoError(t, err)
	assert.Same(t, next.resp, resp)

	events := rec.Find(scopeError, "graphql")
	require.Len(t, events, 2)
	assert.Equal(t, observability.ErrorLevel, events[0].Level)
	assert.Equal(t, "AuthLogin", events[0].Fields["operation"])
	assert.Equal(t, "invalid credentials", events[0].Fields["message"])
	assert.Equal(t, []interface{}{"authLogin"}, events[0].Fields["path"])
	assert.Equal(t, "rate limited", events[1].Fields["message"])
	assert.Zero(t, rec.Count(scopeError, "network"))
}

func TestErrorLink_ReportsNetworkErrorOnce(t *testing.T) {
	rec := observability.NewRecorder()
	link := errorLink(rec, nil)
	netErr := &NetworkError{Message: "dial tcp: connection refused"}
	next := &captureNext{err: netErr}

	_, err := link(context.Background(), NewRequest(Operation{Name: "Me"}), next.handle)

	assert.Same(t, netErr, err)
	events := rec.Find(scopeError, "network")
	require.Len(t, events, 1)
	assert.Equal(t, observability.Fields{"message": "dial tcp: connection refused"}, events[0].Fields)
}

func TestErrorLink_NoEventsOnSuccess(t *testing.T) {
	rec := observability.NewRecorder()
	link := errorLink(rec, nil)
	next := &captureNext{resp: &Response{Data: []byte(`{"me":null}`)}}

	_, err := link(context.Background(), NewRequest(Operation{Name: "Me"}), next.handle)

	require.NoError(t, err)
	assert.Empty(t, rec.Events())
}

func TestAuthLink_InjectsBearerToken(t *testing.T) {
	rec := observability.NewRecorder()
	calls := 0
	accessor := func(context.Context) (string, error) {
		calls++
		return "tok-123", nil
	}
	link := authLink(accessor, rec, nil)
	next := &captureNext{resp: &Response{}}
	original := NewRequest(Operation{Name: "Me"})

	_, err := link(context.Background(), original, next.handle)
	require.NoError(t, err)
	_, err = link(context.Background(), original, next.handle)
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "accessor must be called on every operation")
	require.Len(t, next.calls, 2)
	assert.Equal(t, "Bearer tok-123", next.calls[0].Context.Header("Authorization"))
	assert.False(t, original.Context.HasHeader("Authorization"), "original context must not change")
	assert.Equal(t, 2, rec.Count(scopeAuth, "inject-token"))
	assert.Zero(t, rec.Count(scopeAuth, "missing-token"))
}

func TestAuthLink_MissingToken(t *testing.T) {
	tests := []struct {
		name     string
		accessor TokenAccessor
		existing string
	}{
		{
			name:     "no accessor",
			accessor: nil,
		},
		{
			name:     "empty token leaves header absent",
			accessor: func(context.Context) (string, error) { return "", nil },
		},
		{
			name:     "empty token leaves existing header",
			accessor: func(context.Context) (string, error) { return "", nil },
			existing: "Bearer previous",
		},
		{
			name:     "accessor error",
			accessor: func(context.Context) (string, error) { return "", errors.New("store unavailable") },
			existing: "Basic abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := observability.NewRecorder()
			link := authLink(tt.accessor, rec, nil)
			next := &captureNext{resp: &Response{}}

			req := NewRequest(Operation{Name: "Me"})
			if tt.existing != "" {
				req = req.WithRequestContext(req.Context.WithHeader("Authorization", tt.existing))
			}

			_, err := link(context.Background(), req, next.handle)
			require.NoError(t, err)

			require.Len(t, next.calls, 1)
			forwarded := next.calls[0].Context
			if tt.existing == "" {
				assert.False(t, forwarded.HasHeader("Authorization"))
			} else {
				assert.Equal(t, tt.existing, forwarded.Header("Authorization"))
			}
			assert.Equal(t, 1, rec.Count(scopeAuth, "missing-token"))
			assert.Zero(t, rec.Count(scopeAuth, "inject-token"))
		})
	}
}

func TestAuthLink_AccessorErrorReported(t *testing.T) {
	rec := observability.NewRecorder()
	link := authLink(func(context.Context) (string, error) {
		return "", errors.New("redis down")
	}, rec, nil)
	next := &captureNext{resp: &Response{}}

	_, err := link(context.Background(), NewRequest(Operation{Name: "Me"}), next.handle)

	require.NoError(t, err)
	events := rec.Find(scopeAuth, "token-accessor-failed")
	require.Len(t, events, 1)
	assert.Equal(t, "redis down", events[0].Fields["error"])
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Link {
		return func(ctx context.Context, req Request, next Handler) (*Response, error) {
			order = append(order, name+":in")
			resp, err := next(ctx, req)
			order = append(order, name+":out")
			return resp, err
		}
	}
	terminal := func(context.Context, Request, Handler) (*Response, error) {
		order = append(order, "terminal")
		return &Response{}, nil
	}

	h := Chain(mark("a"), mark("b"), terminal)
	_, err := h(context.Background(), NewRequest(Operation{Name: "Me"}))

	require.NoError(t, err)
	assert.Equal(t, []string{"a:in", "b:in", "terminal", "b:out", "a:out"}, order)
}

func TestChain_EndOfChain(t *testing.T) {
	h := Chain(func(ctx context.Context, req Request, next Handler) (*Response, error) {
		return next(ctx, req)
	})

	_, err := h(context.Background(), NewRequest(Operation{Name: "Me"}))
	assert.Error(t, err)
}
