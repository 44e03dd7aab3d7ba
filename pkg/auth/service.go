package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/novo-auth/pkg/gqlclient"
	"github.com/platinummonkey/novo-auth/pkg/observability"
	"github.com/platinummonkey/novo-auth/pkg/session"
	"github.com/platinummonkey/novo-auth/pkg/transport"
)

const scopeCredentials = "auth:credentials"

// Executor issues catalog documents. *gqlclient.Client implements it.
type Executor interface {
	Query(ctx context.Context, doc gqlclient.Document, variables map[string]interface{}, policy ...gqlclient.FetchPolicy) (*transport.Response, error)
	Mutate(ctx context.Context, doc gqlclient.Document, variables map[string]interface{}) (*transport.Response, error)
}

// Service runs the authentication flows against the backend and keeps the
// resulting sessions in a store.
type Service struct {
	client     Executor
	store      session.Store
	normalizer *session.Normalizer
	tokens     *TokenGenerator
	observer   observability.Observer
}

// NewService creates a Service. A nil normalizer reports nothing.
func NewService(client Executor, store session.Store, normalizer *session.Normalizer, obs observability.Observer) *Service {
	if normalizer == nil {
		normalizer = session.NewNormalizer()
	}
	if obs == nil {
		obs = observability.NopObserver{}
	}
	return &Service{
		client:     client,
		store:      store,
		normalizer: normalizer,
		tokens:     NewTokenGenerator(),
		observer:   obs,
	}
}

// Normalizer returns the normalizer used for login results.
func (s *Service) Normalizer() *session.Normalizer {
	return s.normalizer
}

type loginData struct {
	AuthLogin *struct {
		Session *struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
			ExpiresAt    string `json:"expiresAt"`
		} `json:"session"`
		MFA  *session.RawMFABlock `json:"mfa"`
		User *struct {
			ID         string              `json:"id"`
			Email      string              `json:"email"`
			FullName   *string             `json:"fullName"`
			MFAEnabled *bool               `json:"mfaEnabled"`
			Modules    []session.RawModule `json:"modules"`
		} `json:"user"`
	} `json:"authLogin"`
}

// payload flattens the login response. It is nil when the backend returned
// no user.
func (d loginData) payload() *session.RawAuthPayload {
	if d.AuthLogin == nil || d.AuthLogin.User == nil {
		return nil
	}
	p := &session.RawAuthPayload{
		User: session.RawUser{
			ID:         d.AuthLogin.User.ID,
			Email:      d.AuthLogin.User.Email,
			FullName:   d.AuthLogin.User.FullName,
			MFAEnabled: d.AuthLogin.User.MFAEnabled,
			Modules:    d.AuthLogin.User.Modules,
		},
		MFA: d.AuthLogin.MFA,
	}
	if d.AuthLogin.Session != nil {
		p.AccessToken = d.AuthLogin.Session.AccessToken
		p.RefreshToken = d.AuthLogin.Session.RefreshToken
		p.ExpiresAt = d.AuthLogin.Session.ExpiresAt
	}
	return p
}

// Login signs in with creds, stores the normalized session under a new
// session ID and returns both.
func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	s.observer.Info(scopeCredentials, "authorize:start", nil)

	normalized, err := creds.Normalize()
	if err != nil {
		s.observer.Warn(scopeCredentials, "authorize:missing-fields", nil)
		return nil, err
	}

	resp, err := s.client.Mutate(ctx, gqlclient.AuthLoginMutation, map[string]interface{}{
		"input": map[string]interface{}{
			"email":    normalized.Email,
			"password": normalized.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	var data loginData
	if err := resp.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}

	sess := s.normalizer.Normalize(data.payload())
	if sess.IsAnonymous() {
		return nil, ErrLoginRejected
	}

	id, key, err := s.tokens.GenerateSessionID()
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, key, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.observer.Info(scopeCredentials, "authorize:success", observability.Fields{
		"userId":      *sess.UserID,
		"mfaRequired": sess.MFARequired,
		"session":     s.tokens.DisplayPrefix(id),
	})

	return &LoginResult{Session: sess, SessionID: id}, nil
}

// Resolve loads the session for a session ID. An expired session is removed
// and reported as ErrSessionExpired.
func (s *Service) Resolve(ctx context.Context, sessionID string) (session.Session, error) {
	if err := s.tokens.ValidateSessionID(sessionID); err != nil {
		return session.Anonymous(), fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
	}

	key := s.tokens.StoreKey(sessionID)
	sess, err := s.store.Get(ctx, key)
	if err != nil {
		return session.Anonymous(), err
	}

	if s.normalizer.IsExpired(sess) {
		if err := s.store.Delete(ctx, key); err != nil {
			s.observer.Warn(scopeCredentials, "session:delete-failed", observability.Fields{"error": err.Error()})
		}
		return sess, ErrSessionExpired
	}
	return sess, nil
}

// Logout forgets the session. Unknown IDs are not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.tokens.ValidateSessionID(sessionID); err != nil {
		return nil
	}
	return s.store.Delete(ctx, s.tokens.StoreKey(sessionID))
}

// Signup registers an account.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	creds, err := Credentials{Email: input.Email, Password: input.Password}.Normalize()
	if err != nil {
		return nil, err
	}

	vars := map[string]interface{}{
		"email":    creds.Email,
		"password": creds.Password,
	}
	if name := strings.TrimSpace(input.FullName); name != "" {
		vars["fullName"] = name
	}

	var data struct {
		AuthSignup *SignupResult `json:"authSignup"`
	}
	if err := s.mutate(ctx, gqlclient.AuthSignupMutation, map[string]interface{}{"input": vars}, &data); err != nil {
		return nil, err
	}
	if data.AuthSignup == nil {
		return nil, errors.New("signup returned no result")
	}
	return data.AuthSignup, nil
}

// VerifyEmail confirms an email address with the token from the email.
func (s *Service) VerifyEmail(ctx context.Context, input VerifyEmailInput) (*VerifyEmailResult, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return nil, ErrMissingInput
	}

	var data struct {
		AuthVerifyEmail *VerifyEmailResult `json:"authVerifyEmail"`
	}
	if err := s.mutate(ctx, gqlclient.AuthVerifyEmailMutation, map[string]interface{}{
		"input": map[string]interface{}{"token": token},
	}, &data); err != nil {
		return nil, err
	}
	if data.AuthVerifyEmail == nil {
		return nil, errors.New("email verification returned no result")
	}
	return data.AuthVerifyEmail, nil
}

// EnrollMFA starts TOTP enrollment for the session in ctx.
func (s *Service) EnrollMFA(ctx context.Context) (*MFAEnrollment, error) {
	var data struct {
		AuthMfaEnroll *MFAEnrollment `json:"authMfaEnroll"`
	}
	if err := s.mutate(ctx, gqlclient.AuthMfaEnrollMutation, nil, &data); err != nil {
		return nil, err
	}
	if data.AuthMfaEnroll == nil {
		return nil, errors.New("MFA enrollment returned no result")
	}
	return data.AuthMfaEnroll, nil
}

// VerifyMFA checks a second-factor code. On success the stored session is
// replaced by one that no longer requires MFA.
func (s *Service) VerifyMFA(ctx context.Context, sessionID string, input MFAVerifyInput) (*MFAVerifyResult, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, ErrMissingInput
	}

	vars := map[string]interface{}{"code": code}
	if input.Method != "" {
		vars["method"] = input.Method
	}

	var data struct {
		AuthMfaVerify *MFAVerifyResult `json:"authMfaVerify"`
	}
	if err := s.mutate(ctx, gqlclient.AuthMfaVerifyMutation, map[string]interface{}{"input": vars}, &data); err != nil {
		return nil, err
	}
	if data.AuthMfaVerify == nil {
		return nil, errors.New("MFA verification returned no result")
	}

	if data.AuthMfaVerify.Success && sessionID != "" {
		if err := s.clearMFA(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	return data.AuthMfaVerify, nil
}

func (s *Service) clearMFA(ctx context.Context, sessionID string) error {
	current, err := s.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	next := current
	next.MFARequired = false
	next.MFAMethods = nil
	return s.store.Put(ctx, s.tokens.StoreKey(sessionID), next)
}

// ModuleRedirect asks the backend for a link into slug. The session in ctx,
// when there is one, must have finished MFA and must list the module.
func (s *Service) ModuleRedirect(ctx context.Context, slug string) (*ModuleRedirect, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrMissingInput
	}
	if sess, ok := session.FromContext(ctx); ok {
		if sess.MFARequired {
			return nil, ErrMFARequired
		}
		if !sess.HasModule(slug) {
			return nil, ErrModuleNotGranted
		}
	}

	var data struct {
		AuthModuleRedirect *ModuleRedirect `json:"authModuleRedirect"`
	}
	if err := s.mutate(ctx, gqlclient.AuthModuleRedirectMutation, map[string]interface{}{
		"input": map[string]interface{}{"slug": slug},
	}, &data); err != nil {
		return nil, err
	}
	if data.AuthModuleRedirect == nil {
		return nil, errors.New("module redirect returned no result")
	}
	return data.AuthModuleRedirect, nil
}

// Me returns the signed-in user.
func (s *Service) Me(ctx context.Context) (*User, error) {
	var data struct {
		Me *User `json:"me"`
	}
	if err := s.query(ctx, gqlclient.MeQuery, &data); err != nil {
		return nil, err
	}
	if data.Me == nil {
		return nil, ErrSessionExpired
	}
	if data.Me.Modules == nil {
		data.Me.Modules = []session.Module{}
	}
	return data.Me, nil
}

// SessionStatus returns the backend's view of the session.
func (s *Service) SessionStatus(ctx context.Context) (*SessionStatus, error) {
	var data struct {
		SessionStatus *struct {
			Session *struct {
				ExpiresAt *string `json:"expiresAt"`
			} `json:"session"`
			Environment *struct {
				MaintenanceMode bool `json:"maintenanceMode"`
			} `json:"environment"`
		} `json:"sessionStatus"`
	}
	if err := s.query(ctx, gqlclient.SessionStatusQuery, &data); err != nil {
		return nil, err
	}

	status := &SessionStatus{}
	if data.SessionStatus == nil {
		return status, nil
	}
	if data.SessionStatus.Environment != nil {
		status.MaintenanceMode = data.SessionStatus.Environment.MaintenanceMode
	}
	if data.SessionStatus.Session != nil && data.SessionStatus.Session.ExpiresAt != nil {
		status.ExpiresAt = s.normalizer.ParseExpiry(*data.SessionStatus.Session.ExpiresAt)
	}
	return status, nil
}

func (s *Service) mutate(ctx context.Context, doc gqlclient.Document, vars map[string]interface{}, out interface{}) error {
	resp, err := s.client.Mutate(ctx, doc, vars)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (s *Service) query(ctx context.Context, doc gqlclient.Document, out interface{}) error {
	resp, err := s.client.Query(ctx, doc, nil)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *transport.Response, out interface{}) error {
	if resp == nil {
		return errors.New("empty response")
	}
	return resp.Decode(out)
}
