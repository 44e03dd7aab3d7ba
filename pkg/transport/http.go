package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/novo-auth/pkg/contextkeys"
)

const (
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 10 << 20

	defaultHTTPTimeout = 30 * time.Second
)

type wireRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// newHTTPClient returns a client that keeps cookies between operations and is
// instrumented with otelhttp.
func newHTTPClient(tp trace.TracerProvider) *http.Client {
	// cookiejar.New only fails on a bad PublicSuffixList, and none is passed.
	jar, _ := cookiejar.New(nil)

	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(tp)),
		Jar:       jar,
		Timeout:   defaultHTTPTimeout,
	}
}

type httpTransport struct {
	endpoint string
	client   *http.Client
}

// link is the innermost stage. It ignores next.
func (t *httpTransport) link(ctx context.Context, req Request, _ Handler) (*Response, error) {
	body, err := json.Marshal(wireRequest{
		Query:         req.Operation.Query,
		OperationName: req.Operation.Name,
		Variables:     req.Operation.Variables,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation %s: %w", req.Operation.Name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header = req.Context.Headers()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if requestID := contextkeys.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Message: err.Error(), Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Message: fmt.Sprintf("failed to read response: %v", err), StatusCode: httpResp.StatusCode, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &NetworkError{
			Message:    fmt.Sprintf("unexpected status %s", http.StatusText(httpResp.StatusCode)),
			StatusCode: httpResp.StatusCode,
		}
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &NetworkError{
			Message:    fmt.Sprintf("failed to parse response: %v", err),
			StatusCode: httpResp.StatusCode,
			Err:        err,
		}
	}
	resp.StatusCode = httpResp.StatusCode

	return &resp, nil
}
