package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/platinummonkey/novo-auth/pkg/contextkeys"
	"github.com/platinummonkey/novo-auth/pkg/httputil"
	"github.com/platinummonkey/novo-auth/pkg/observability"
)

// AuditLog is a security audit entry for an authentication event.
type AuditLog struct {
	Action       string    `json:"action"`
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditLogger writes audit entries as structured log lines.
type AuditLogger struct {
	logger *observability.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *observability.Logger) *AuditLogger {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, io.Discard)
	}
	return &AuditLogger{
		logger: logger.WithField("component", "audit"),
		now:    time.Now,
	}
}

// LogAction validates and writes an audit entry.
func (al *AuditLogger) LogAction(ctx context.Context, entry *AuditLog) error {
	if entry.Action == "" {
		return fmt.Errorf("action is required")
	}
	if entry.Status == "" {
		return fmt.Errorf("status is required")
	}

	entry.CreatedAt = al.now()
	if entry.RequestID == "" {
		entry.RequestID = contextkeys.GetRequestID(ctx)
	}

	fields := map[string]interface{}{
		"action":     entry.Action,
		"status":     entry.Status,
		"created_at": entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range map[string]string{
		"user_id":       entry.UserID,
		"email":         entry.Email,
		"request_id":    entry.RequestID,
		"ip_address":    entry.IPAddress,
		"user_agent":    entry.UserAgent,
		"error_message": entry.ErrorMessage,
	} {
		if v != "" {
			fields[k] = v
		}
	}

	l := al.logger.WithFields(fields)
	if entry.Status == StatusSuccess {
		l.Info("audit")
	} else {
		l.Warn("audit")
	}
	return nil
}

// LogFromRequest creates an audit entry from an HTTP request
func (al *AuditLogger) LogFromRequest(r *http.Request, action, userID, email, status string, err error) error {
	entry := &AuditLog{
		Action:    action,
		UserID:    userID,
		Email:     email,
		IPAddress: httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
		Status:    status,
	}
	if entry.UserID == "" {
		entry.UserID = contextkeys.GetUserID(r.Context())
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}

	return al.LogAction(r.Context(), entry)
}

// Audit actions
const (
	ActionLogin          = "auth.login"
	ActionSignup         = "auth.signup"
	ActionVerifyEmail    = "auth.verify_email"
	ActionMFAEnroll      = "auth.mfa_enroll"
	ActionMFAVerify      = "auth.mfa_verify"
	ActionLogout         = "auth.logout"
	ActionModuleRedirect = "auth.module_redirect"
)

// Status constants
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)
