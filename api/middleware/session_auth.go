package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/reelkeep/reelkeep-backend/api/responses"
	"github.com/reelkeep/reelkeep-backend/pkg/config"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
	"github.com/reelkeep/reelkeep-backend/pkg/session"
)

// SessionCookieName is the default cookie carrying the opaque session id,
// used when the config does not override it. The cookie is HttpOnly; the
// CSRF token travels separately so script can read it.
const SessionCookieName = "reelkeep_session"

// SessionCookie resolves the configured cookie name.
func SessionCookie(cfg config.SessionConfig) string {
	if cfg.CookieName != "" {
		return cfg.CookieName
	}
	return SessionCookieName
}

// SessionLoader resolves a session id to its live session.
type SessionLoader interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
}

// SessionAuth resolves the session cookie and seeds the request context
// with the caller's identity. Requests without a live session stop here.
func SessionAuth(store SessionLoader, cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := SessionCookie(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}

			sess, err := store.Get(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired or invalid"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
				return
			}

			ctx := WithUserID(r.Context(), sess.UserID)
			ctx = WithSession(ctx, sess)
			if logg != nil {
				ctx = logg.WithUserID(ctx, sess.UserID)
				ctx = logg.WithSessionID(ctx, sess.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
