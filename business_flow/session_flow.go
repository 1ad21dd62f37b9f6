package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/amirphl/dokany-admin/app/services"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/repository"
	"github.com/go-playground/validator/v10"
)

const loginFailedMessage = "Invalid email or password. Please try again."

// SessionStore is the single owner of the console's admin session.
// Reads go through Snapshot and Token; only Bootstrap, Login, Logout and Invalidate write.
type SessionStore interface {
	Bootstrap(ctx context.Context) models.Session
	Login(ctx context.Context, email, password string, metadata *ClientMetadata) (models.Session, error)
	Logout(ctx context.Context, metadata *ClientMetadata) models.Session
	Invalidate(ctx context.Context, reason string) models.Session
	RequestPasswordReset(ctx context.Context, email string, metadata *ClientMetadata) (string, error)
	Snapshot() models.Session
	Token() string
}

// LoginInput holds the login form
type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type SessionStoreImpl struct {
	mu      sync.RWMutex
	session models.Session
	token   string

	loginMu sync.Mutex

	store     repository.TokenStore
	decoder   services.TokenDecoder
	auth      services.AuthClient
	audit     auditRecorder
	validator *validator.Validate
}

// NewSessionStore returns a store in the loading state; Bootstrap resolves it
func NewSessionStore(store repository.TokenStore, decoder services.TokenDecoder, auth services.AuthClient, auditRepo repository.AuditLogRepository) *SessionStoreImpl {
	return &SessionStoreImpl{
		session:   models.Session{Loading: true},
		store:     store,
		decoder:   decoder,
		auth:      auth,
		audit:     auditRecorder{repo: auditRepo},
		validator: validator.New(),
	}
}

func (s *SessionStoreImpl) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.session
	if snap.Identity != nil {
		id := *snap.Identity
		snap.Identity = &id
	}
	return snap
}

// Token implements services.TokenSource
func (s *SessionStoreImpl) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Bootstrap rehydrates the session from the persisted token. It never fails:
// a missing, unreadable, malformed or expired token leaves the session unauthenticated.
// Only a token that fails to decode is cleared from storage.
func (s *SessionStoreImpl) Bootstrap(ctx context.Context) models.Session {
	s.setLoading()

	token, err := s.store.Load(ctx)
	if err != nil {
		// the token may still be valid once storage recovers, so it stays where it is
		logx.L().Warnw("stored token could not be read, starting signed out", "error", err)
		sessionBootstrapTotal.WithLabelValues("unreadable").Inc()
		return s.resolveUnauthenticated()
	}
	if token == "" {
		sessionBootstrapTotal.WithLabelValues("absent").Inc()
		return s.resolveUnauthenticated()
	}

	identity, err := s.decoder.Decode(token)
	if err != nil {
		logx.L().Debugw("stored token rejected during bootstrap", "error", err)
		s.discardStoredToken(ctx)
		sessionBootstrapTotal.WithLabelValues("rejected").Inc()
		s.audit.record(ctx, auditEntry{
			action:      models.AuditActionSessionDiscarded,
			description: "Stored token rejected at startup",
			success:     false,
			errMsg:      err.Error(),
		}, nil)
		return s.resolveUnauthenticated()
	}

	sessionBootstrapTotal.WithLabelValues("restored").Inc()
	s.audit.record(ctx, auditEntry{
		action:      models.AuditActionSessionRestored,
		identity:    identity,
		description: "Session restored from stored token",
		success:     true,
	}, nil)
	return s.resolveAuthenticated(token, identity)
}

// Login validates the form, authenticates against the dashboard API and persists the token.
// Form violations come back as *ValidationError and leave the session untouched.
func (s *SessionStoreImpl) Login(ctx context.Context, email, password string, metadata *ClientMetadata) (models.Session, error) {
	input := LoginInput{Email: strings.TrimSpace(email), Password: password}
	if fields := s.validateLogin(input); len(fields) > 0 {
		return s.Snapshot(), newValidationError(ErrLoginInvalid, fields)
	}

	if !s.loginMu.TryLock() {
		return s.Snapshot(), NewBusinessError("LOGIN_IN_PROGRESS", "A login is already in progress.", ErrLoginInProgress)
	}
	defer s.loginMu.Unlock()

	s.setLoading()

	result, err := s.auth.Login(ctx, input.Email, input.Password)
	if err != nil {
		apiErr := services.AsAPIError(err, loginFailedMessage)
		return s.failLogin(ctx, input.Email, metadata, apiErr.Message, fmt.Errorf("%w: %w", ErrLoginRejected, err))
	}

	identity, decodeErr := s.decoder.Decode(result.Token)
	if decodeErr != nil {
		if result.User == nil {
			return s.failLogin(ctx, input.Email, metadata, loginFailedMessage, fmt.Errorf("%w: %w", ErrLoginRejected, decodeErr))
		}
		logx.L().Warnw("login token is not decodable, using returned user", "error", decodeErr)
		identity = result.User
	}

	if err := s.store.Save(ctx, result.Token); err != nil {
		logx.L().Errorw("failed to persist bearer token", "error", err)
		return s.failLogin(ctx, input.Email, metadata, "Signed in, but the session could not be saved. Please try again.", fmt.Errorf("%w: %w", ErrTokenPersistFailed, err))
	}

	loginAttemptsTotal.WithLabelValues("success").Inc()
	s.audit.record(ctx, auditEntry{
		action:      models.AuditActionLoginSuccess,
		identity:    identity,
		description: "Admin signed in",
		success:     true,
	}, metadata)

	return s.resolveAuthenticated(result.Token, identity), nil
}

// Logout clears the persisted token and resets the session. Calling it again is a no-op.
func (s *SessionStoreImpl) Logout(ctx context.Context, metadata *ClientMetadata) models.Session {
	prev := s.Snapshot()
	snap := s.resolveUnauthenticated()
	s.discardStoredToken(ctx)

	if prev.IsAuthenticated {
		s.audit.record(ctx, auditEntry{
			action:      models.AuditActionLogout,
			identity:    prev.Identity,
			description: "Admin signed out",
			success:     true,
		}, metadata)
	}
	return snap
}

// Invalidate drops a session the dashboard API no longer accepts
func (s *SessionStoreImpl) Invalidate(ctx context.Context, reason string) models.Session {
	prev := s.Snapshot()
	snap := s.resolveUnauthenticated()
	s.discardStoredToken(ctx)

	if prev.IsAuthenticated {
		logx.L().Infow("session invalidated", "reason", reason, "admin_id", prev.Identity.UserID)
		s.audit.record(ctx, auditEntry{
			action:      models.AuditActionSessionDiscarded,
			identity:    prev.Identity,
			description: "Session invalidated: " + reason,
			success:     false,
		}, nil)
	}
	return snap
}

// RequestPasswordReset asks the dashboard to mail a reset link. It works signed out and never touches the session.
func (s *SessionStoreImpl) RequestPasswordReset(ctx context.Context, email string, metadata *ClientMetadata) (string, error) {
	email = strings.TrimSpace(email)
	if s.validator.Var(email, "required,email") != nil {
		return "", newValidationError(ErrInvalidEmail, FieldErrors{"email": "Please enter a valid email address."})
	}

	message, err := s.auth.RequestPasswordReset(ctx, email)
	if err != nil {
		apiErr := services.AsAPIError(err, "An unexpected error occurred.")
		s.audit.record(ctx, auditEntry{
			action:      models.AuditActionPasswordReset,
			description: "Password reset failed for " + email,
			success:     false,
			errMsg:      err.Error(),
		}, metadata)
		return "", NewBusinessError("PASSWORD_RESET_FAILED", apiErr.Message, err)
	}

	s.audit.record(ctx, auditEntry{
		action:      models.AuditActionPasswordReset,
		description: "Password reset requested for " + email,
		success:     true,
	}, metadata)
	return message, nil
}

func (s *SessionStoreImpl) failLogin(ctx context.Context, email string, metadata *ClientMetadata, message string, cause error) (models.Session, error) {
	s.discardStoredToken(ctx)
	snap := s.resolveUnauthenticated()

	loginAttemptsTotal.WithLabelValues("failure").Inc()
	s.audit.record(ctx, auditEntry{
		action:      models.AuditActionLoginFailed,
		description: "Login failed for " + email,
		success:     false,
		errMsg:      cause.Error(),
	}, metadata)

	return snap, NewBusinessError("LOGIN_FAILED", message, cause)
}

func (s *SessionStoreImpl) validateLogin(input LoginInput) FieldErrors {
	err := s.validator.Struct(&input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"email": err.Error()}
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Email":
			fields["email"] = "Please enter a valid email address."
		case "Password":
			fields["password"] = "Password must be at least 6 characters long."
		}
	}
	return fields
}

func (s *SessionStoreImpl) discardStoredToken(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		logx.L().Warnw("failed to clear stored token", "error", err)
	}
}

func (s *SessionStoreImpl) setLoading() {
	s.mu.Lock()
	s.session.Loading = true
	s.mu.Unlock()
}

func (s *SessionStoreImpl) resolveUnauthenticated() models.Session {
	s.mu.Lock()
	s.session = models.Session{}
	s.token = ""
	s.mu.Unlock()
	return models.Session{}
}

func (s *SessionStoreImpl) resolveAuthenticated(token string, identity *models.AdminIdentity) models.Session {
	id := *identity
	s.mu.Lock()
	s.session = models.Session{Identity: &id, IsAuthenticated: true}
	s.token = token
	s.mu.Unlock()
	return s.Snapshot()
}
