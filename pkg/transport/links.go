package transport

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

const (
	scopePipeline = "transport:pipeline"
	scopeTrace    = "transport:link:trace"
	scopeRetry    = "transport:link:retry"
	scopeError    = "transport:link:error"
	scopeAuth     = "transport:link:auth"
)

// tracingLink reports every operation before forwarding it and wraps the
// rest of the chain in a client span. The request is passed through as is.
func tracingLink(tracer trace.Tracer, obs observability.Observer) Link {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		obs.Info(scopeTrace, "forward", observability.Fields{
			"operation": req.Operation.Name,
		})

		ctx, span := tracer.Start(ctx, "graphql "+req.Operation.Name,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("graphql.operation.name", req.Operation.Name),
				attribute.String("graphql.operation.type", string(req.Operation.Kind)),
			),
		)
		defer span.End()

		resp, err := next(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if resp != nil && len(resp.Errors) > 0 {
			span.SetAttributes(attribute.Int("graphql.errors", len(resp.Errors)))
			span.SetStatus(codes.Error, resp.Errors[0].Message)
		}
		return resp, err
	}
}

// errorLink classifies what comes back from the inner stages and reports each
// occurrence once. It never changes the response or the error.
func errorLink(obs observability.Observer, metrics *observability.Metrics) Link {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		resp, err := next(ctx, req)

		if resp != nil {
			for _, gqlErr := range resp.Errors {
				obs.Error(scopeError, "graphql", observability.Fields{
					"operation":  req.Operation.Name,
					"message":    gqlErr.Message,
					"path":       gqlErr.Path,
					"extensions": gqlErr.Extensions,
				})
				metrics.RecordOperationError(req.Operation.Name, "graphql")
			}
		}

		if err != nil {
			message := err.Error()
			var netErr *NetworkError
			if errors.As(err, &netErr) {
				message = netErr.Message
			}
			obs.Error(scopeError, "network", observability.Fields{
				"message": message,
			})
			metrics.RecordOperationError(req.Operation.Name, "network")
		}

		return resp, err
	}
}

// authLink resolves the token on every operation and, when one is available,
// forwards a request whose context carries a bearer Authorization header.
func authLink(accessor TokenAccessor, obs observability.Observer, metrics *observability.Metrics) Link {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		var token string
		if accessor != nil {
			t, err := accessor(ctx)
			if err != nil {
				obs.Warn(scopeAuth, "token-accessor-failed", observability.Fields{
					"error": err.Error(),
				})
			} else {
				token = t
			}
		}

		if token == "" {
			obs.Warn(scopeAuth, "missing-token", nil)
			metrics.RecordTokenInjection("missing")
			return next(ctx, req)
		}

		obs.Info(scopeAuth, "inject-token", nil)
		metrics.RecordTokenInjection("injected")
		return next(ctx, req.WithRequestContext(req.Context.WithHeader("Authorization", "Bearer "+token)))
	}
}
