package auth

import (
	"errors"

	"github.com/platinummonkey/novo-auth/pkg/observability"
	"github.com/platinummonkey/novo-auth/pkg/session"
	"github.com/platinummonkey/novo-auth/pkg/transport"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrLoginRejected      = errors.New("login rejected")
	ErrInvalidSessionID   = errors.New("invalid session ID")
	ErrSessionExpired     = errors.New("session expired")
	ErrModuleNotGranted   = errors.New("module not granted to this session")
	ErrMissingInput       = errors.New("required input missing")
	ErrMFARequired        = errors.New("second factor required")
)

// Error codes returned by PresentError.
const (
	CodeMissingCredentials = "missing_credentials"
	CodeLoginRejected      = "login_rejected"
	CodeSessionExpired     = "session_expired"
	CodeModuleNotGranted   = "module_not_granted"
	CodeMFARequired        = "mfa_required"
	CodeInvalidInput       = "invalid_input"
	CodeUnavailable        = "service_unavailable"
	CodeUnknown            = "unknown"
)

const scopeErrors = "utils:errors"

// PresentedError is an error in a form fit to show a user.
type PresentedError struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"`
}

// PresentError maps any error onto a PresentedError. Backend error codes are
// passed through when the backend supplied one.
func PresentError(obs observability.Observer, err error) PresentedError {
	if obs == nil {
		obs = observability.NopObserver{}
	}
	obs.Info(scopeErrors, "normalize", observability.Fields{"type": errorType(err)})

	var appErr *transport.ApplicationError
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return PresentedError{
			Title:       "Missing credentials",
			Description: "Enter both your email address and password.",
			Code:        CodeMissingCredentials,
		}
	case errors.Is(err, ErrMissingInput):
		return PresentedError{
			Title:       "Missing information",
			Description: "Some required fields were left empty.",
			Code:        CodeInvalidInput,
		}
	case errors.Is(err, ErrLoginRejected):
		return PresentedError{
			Title:       "Sign-in failed",
			Description: "The email address or password is incorrect.",
			Code:        CodeLoginRejected,
		}
	case errors.Is(err, ErrSessionExpired), errors.Is(err, session.ErrNotFound), errors.Is(err, ErrInvalidSessionID):
		return PresentedError{
			Title:       "Session expired",
			Description: "Sign in again to continue.",
			Code:        CodeSessionExpired,
		}
	case errors.Is(err, ErrModuleNotGranted):
		return PresentedError{
			Title:       "Module unavailable",
			Description: "Your account does not have access to this module.",
			Code:        CodeModuleNotGranted,
		}
	case errors.Is(err, ErrMFARequired):
		return PresentedError{
			Title:       "Verification required",
			Description: "Confirm your second factor before opening modules.",
			Code:        CodeMFARequired,
		}
	case errors.As(err, &appErr):
		code := CodeUnknown
		if len(appErr.Errors) > 0 && appErr.Errors[0].Code() != "" {
			code = appErr.Errors[0].Code()
		}
		description := "The request could not be completed."
		if len(appErr.Errors) > 0 && appErr.Errors[0].Message != "" {
			description = appErr.Errors[0].Message
		}
		return PresentedError{
			Title:       "Request rejected",
			Description: description,
			Code:        code,
		}
	case transport.IsNetworkError(err):
		return PresentedError{
			Title:       "Service unavailable",
			Description: "The authentication service could not be reached. Please retry shortly.",
			Code:        CodeUnavailable,
		}
	default:
		return PresentedError{
			Title:       "Something went wrong",
			Description: "Please retry the action or contact the Novo security desk if the issue persists.",
		}
	}
}

func errorType(err error) string {
	var appErr *transport.ApplicationError
	var netErr *transport.NetworkError
	var cfgErr *transport.ConfigurationError
	switch {
	case err == nil:
		return "nil"
	case errors.As(err, &appErr):
		return "application"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &cfgErr):
		return "configuration"
	default:
		return "error"
	}
}
