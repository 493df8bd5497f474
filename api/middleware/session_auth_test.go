package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reelkeep/reelkeep-backend/pkg/config"
	"github.com/reelkeep/reelkeep-backend/pkg/session"
)

type stubSessionLoader struct {
	sessions map[string]*session.Session
	err      error
}

func (s *stubSessionLoader) Get(_ context.Context, sessionID string) (*session.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	if sess, ok := s.sessions[sessionID]; ok {
		return sess, nil
	}
	return nil, session.ErrNotFound
}

func testSession() *session.Session {
	return &session.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Email:     "sam@example.com",
		Auth:      session.AuthContext{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)},
		CSRFToken: "csrf-token-1",
	}
}

func sessionRequest(sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
	}
	return req
}

func TestSessionAuthSeedsContext(t *testing.T) {
	loader := &stubSessionLoader{sessions: map[string]*session.Session{"sess-1": testSession()}}

	var gotUserID string
	var gotSession *session.Session
	handler := SessionAuth(loader, config.SessionConfig{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotSession = SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("sess-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != "user-1" {
		t.Fatalf("expected user id in context, got %q", gotUserID)
	}
	if gotSession == nil || gotSession.ID != "sess-1" {
		t.Fatalf("expected session in context, got %+v", gotSession)
	}
}

func TestSessionAuthHonorsConfiguredCookieName(t *testing.T) {
	loader := &stubSessionLoader{sessions: map[string]*session.Session{"sess-1": testSession()}}
	cfg := config.SessionConfig{CookieName: "custom_session"}

	ran := false
	handler := SessionAuth(loader, cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))

	// The default cookie name is ignored once a name is configured.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("sess-1"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("default cookie must not authenticate, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/watchlist", nil)
	req.AddCookie(&http.Cookie{Name: "custom_session", Value: "sess-1"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !ran {
		t.Fatalf("configured cookie must authenticate, got %d", rec.Code)
	}
}

func TestSessionAuthRejectsMissingCookie(t *testing.T) {
	loader := &stubSessionLoader{sessions: map[string]*session.Session{}}
	handler := SessionAuth(loader, config.SessionConfig{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest(""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuthRejectsUnknownSession(t *testing.T) {
	loader := &stubSessionLoader{sessions: map[string]*session.Session{}}
	handler := SessionAuth(loader, config.SessionConfig{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a dead session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("expired"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
