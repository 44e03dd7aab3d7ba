package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError is returned by Build when the pipeline cannot be
// constructed. It is never retried.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// NetworkError is a transport-level failure: connection refused, timeout,
// DNS, non-2xx status or an unreadable body. Only NetworkErrors are retried.
type NetworkError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ApplicationError carries the structured errors the backend returned for an
// operation. The Response that produced it is still returned to the caller.
type ApplicationError struct {
	Operation string
	Errors    []GraphQLError
}

func (e *ApplicationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, gqlErr := range e.Errors {
		msgs = append(msgs, gqlErr.Message)
	}
	return fmt.Sprintf("graphql error in %s: %s", e.Operation, strings.Join(msgs, "; "))
}

// HasCode reports whether any of the errors carries extensions.code == code.
func (e *ApplicationError) HasCode(code string) bool {
	for _, gqlErr := range e.Errors {
		if gqlErr.Code() == code {
			return true
		}
	}
	return false
}

// IsNetworkError reports whether err wraps a *NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsApplicationError reports whether err wraps an *ApplicationError.
func IsApplicationError(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr)
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
