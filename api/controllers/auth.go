package controllers

import (
	"net/http"

	"github.com/reelkeep/reelkeep-backend/api/middleware"
	"github.com/reelkeep/reelkeep-backend/api/responses"
	"github.com/reelkeep/reelkeep-backend/api/validators"
	"github.com/reelkeep/reelkeep-backend/internal/auth"
	"github.com/reelkeep/reelkeep-backend/pkg/config"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

// AuthRegister creates the account without signing the caller in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.Register(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

// AuthLogin exchanges credentials for a session cookie plus the CSRF token
// the client must echo on mutations.
func AuthLogin(svc auth.Service, sessionCfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			// A malformed login body still reads as a credential failure so
			// probing responses stay uniform.
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
			return
		}

		result, err := svc.Login(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie(sessionCfg),
			Value:    result.SessionID,
			Path:     "/",
			HttpOnly: true,
			Secure:   sessionCfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		responses.WriteSuccess(w, result)
	}
}

// AuthLogout clears the session server-side and expires the cookie. Safe
// to call with a dead or missing session.
func AuthLogout(svc auth.Service, sessionCfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		sessionID := ""
		if cookie, err := r.Cookie(middleware.SessionCookie(sessionCfg)); err == nil {
			sessionID = cookie.Value
		}

		if err := svc.Logout(ctx, sessionID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie(sessionCfg),
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sessionCfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		responses.WriteSuccess(w, map[string]bool{"logged_out": true})
	}
}

// AuthCSRF re-issues the session's CSRF token to a client that lost it,
// e.g. after a page reload. The token never rotates within a session.
func AuthCSRF(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := middleware.SessionFromContext(ctx)
		if sess == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"csrf_token": sess.CSRFToken})
	}
}

// AuthSession reports the signed-in identity and hands the client its CSRF
// token, so a page reload can resume without re-authenticating.
func AuthSession(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := middleware.SessionFromContext(ctx)
		if sess == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user_id":    sess.UserID,
			"email":      sess.Email,
			"csrf_token": sess.CSRFToken,
		})
	}
}
