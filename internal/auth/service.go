package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/reelkeep/reelkeep-backend/internal/users"
	"github.com/reelkeep/reelkeep-backend/pkg/audit"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/identity"
	"github.com/reelkeep/reelkeep-backend/pkg/session"
)

const minPasswordLength = 6

// Service owns the session and account lifecycle against the remote
// identity platform.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	UpdateEmail(ctx context.Context, sess *session.Session, req UpdateEmailRequest) (*users.UserDTO, error)
	UpdatePassword(ctx context.Context, sess *session.Session, req UpdatePasswordRequest) error
	DeleteAccount(ctx context.Context, sess *session.Session) error
}

type identityBackend interface {
	SignUp(ctx context.Context, email, password string) (*identity.Identity, error)
	SignIn(ctx context.Context, email, password string) (*identity.TokenGrant, error)
	SignOut(ctx context.Context, accessToken string) error
	UpdateEmail(ctx context.Context, accessToken, newEmail string) (*identity.Identity, error)
	UpdatePassword(ctx context.Context, accessToken, newPassword string) (*identity.Identity, error)
	DeleteUser(ctx context.Context, userID string) error
}

type userProjection interface {
	Upsert(ctx context.Context, user *users.User) error
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Delete(ctx context.Context, id string) error
}

type sessionStore interface {
	Create(ctx context.Context, userID, email string, auth session.AuthContext) (*session.Session, error)
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Update(ctx context.Context, sess *session.Session) error
	Destroy(ctx context.Context, sessionID string) error
}

// ownerRecordWiper removes every record owned by an identity ahead of
// account deletion. Implemented by the watchlist repository.
type ownerRecordWiper interface {
	DeleteAllForOwner(ctx context.Context, accessToken, ownerID string) error
}

type service struct {
	backend  identityBackend
	users    userProjection
	sessions sessionStore
	wiper    ownerRecordWiper
	sink     audit.Sink
}

// ServiceParams bundles the dependencies required to build the service.
type ServiceParams struct {
	Backend     identityBackend
	UserRepo    userProjection
	Sessions    sessionStore
	RecordWiper ownerRecordWiper
	AuditSink   audit.Sink
}

// NewService constructs the session authenticator.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("identity backend is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user projection is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if params.RecordWiper == nil {
		return nil, fmt.Errorf("record wiper is required")
	}
	sink := params.AuditSink
	if sink == nil {
		sink = audit.Nop{}
	}
	return &service{
		backend:  params.Backend,
		users:    params.UserRepo,
		sessions: params.Sessions,
		wiper:    params.RecordWiper,
		sink:     sink,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user projection")
	}

	ident, err := s.backend.SignUp(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}

	projected := &users.User{ID: ident.ID, Email: ident.Email}
	if ident.ProfileImageRef != "" {
		ref := ident.ProfileImageRef
		projected.ProfileImageRef = &ref
	}
	if err := s.users.Upsert(ctx, projected); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mirror user projection")
	}

	s.sink.Emit(ctx, audit.Event{Action: "user.registered", UserID: ident.ID})
	return users.FromModel(projected), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		// Malformed input never reaches the backend, but the caller still
		// sees a uniform credential failure.
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	grant, err := s.backend.SignIn(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}

	projected := &users.User{ID: grant.Identity.ID, Email: grant.Identity.Email}
	if grant.Identity.ProfileImageRef != "" {
		ref := grant.Identity.ProfileImageRef
		projected.ProfileImageRef = &ref
	}
	if err := s.users.Upsert(ctx, projected); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mirror user projection")
	}

	sess, err := s.sessions.Create(ctx, grant.Identity.ID, grant.Identity.Email, session.AuthContext{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.ExpiresAt,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create session")
	}

	s.sink.Emit(ctx, audit.Event{Action: "user.logged_in", UserID: grant.Identity.ID})
	return &LoginResult{
		SessionID: sess.ID,
		CSRFToken: sess.CSRFToken,
		User:      users.FromModel(projected),
	}, nil
}

// Logout revokes the remote token best-effort and always clears the local
// session. Logging out an absent session succeeds.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}

	if err := s.backend.SignOut(ctx, sess.Auth.AccessToken); err != nil {
		s.sink.Emit(ctx, audit.Event{
			Action: "session.remote_revoke_failed",
			UserID: sess.UserID,
			Fields: map[string]any{"error": err.Error()},
		})
	}

	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "destroy session")
	}
	s.sink.Emit(ctx, audit.Event{Action: "user.logged_out", UserID: sess.UserID})
	return nil
}

func (s *service) UpdateEmail(ctx context.Context, sess *session.Session, req UpdateEmailRequest) (*users.UserDTO, error) {
	token, err := liveAccessToken(sess)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	ident, err := s.backend.UpdateEmail(ctx, token, email)
	if err != nil {
		return nil, err
	}

	projected := &users.User{ID: ident.ID, Email: ident.Email}
	if err := s.users.Upsert(ctx, projected); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh user projection")
	}

	sess.Email = ident.Email
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh session")
	}

	s.sink.Emit(ctx, audit.Event{Action: "user.email_updated", UserID: sess.UserID})
	return users.FromModel(projected), nil
}

func (s *service) UpdatePassword(ctx context.Context, sess *session.Session, req UpdatePasswordRequest) error {
	token, err := liveAccessToken(sess)
	if err != nil {
		return err
	}
	if len(req.Password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if req.Password != req.ConfirmPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "password confirmation does not match")
	}

	if _, err := s.backend.UpdatePassword(ctx, token, req.Password); err != nil {
		return err
	}

	s.sink.Emit(ctx, audit.Event{Action: "user.password_updated", UserID: sess.UserID})
	return nil
}

// DeleteAccount removes the caller's movies, the remote identity, the local
// projection, and the session, in that order. The session survives unless
// the backend has confirmed the identity is gone.
func (s *service) DeleteAccount(ctx context.Context, sess *session.Session) error {
	token, err := liveAccessToken(sess)
	if err != nil {
		return err
	}

	if err := s.wiper.DeleteAllForOwner(ctx, token, sess.UserID); err != nil {
		s.sink.Emit(ctx, audit.Event{
			Action: "account.delete_failed",
			UserID: sess.UserID,
			Fields: map[string]any{"step": "movies", "error": err.Error()},
		})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "account deletion failed")
	}

	if err := s.backend.DeleteUser(ctx, sess.UserID); err != nil {
		s.sink.Emit(ctx, audit.Event{
			Action: "account.delete_failed",
			UserID: sess.UserID,
			Fields: map[string]any{"step": "identity", "error": err.Error()},
		})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "account deletion failed")
	}

	// The identity is gone; the remaining cleanup is attempted regardless
	// and failures are aggregated rather than resurrecting the account.
	var cleanup error
	if err := s.users.Delete(ctx, sess.UserID); err != nil {
		cleanup = multierr.Append(cleanup, fmt.Errorf("projection delete: %w", err))
	}
	if err := s.sessions.Destroy(ctx, sess.ID); err != nil {
		cleanup = multierr.Append(cleanup, fmt.Errorf("session destroy: %w", err))
	}
	if cleanup != nil {
		s.sink.Emit(ctx, audit.Event{
			Action: "account.delete_cleanup_failed",
			UserID: sess.UserID,
			Fields: map[string]any{"error": cleanup.Error()},
		})
	}

	s.sink.Emit(ctx, audit.Event{Action: "account.deleted", UserID: sess.UserID})
	return nil
}

func liveAccessToken(sess *session.Session) (string, error) {
	if sess == nil || strings.TrimSpace(sess.Auth.AccessToken) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access token")
	}
	return sess.Auth.AccessToken, nil
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is malformed")
	}
	return trimmed, nil
}
