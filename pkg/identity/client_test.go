package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reelkeep/reelkeep-backend/pkg/config"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.IdentityConfig{
		BaseURL:  srv.URL,
		APIKey:   "anon-key",
		AdminKey: "service-key",
		Timeout:  2 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestSignInSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("grant_type") != "password" {
			t.Fatalf("expected password grant, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Fatalf("service key not forwarded")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "a@x.com" {
			t.Fatalf("unexpected email %q", body["email"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "issued-access",
			"refresh_token": "issued-refresh",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1", "email": "a@x.com"},
		})
	}))

	grant, err := client.SignIn(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if grant.AccessToken != "issued-access" || grant.Identity.ID != "user-1" {
		t.Fatalf("unexpected grant %+v", grant)
	}
	if grant.ExpiresAt.IsZero() {
		t.Fatalf("expected derived expiry")
	}
}

func TestSignInCollapsesBackendRejections(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden} {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant","error_description":"Email not confirmed"}`, status)
		}))

		_, err := client.SignIn(context.Background(), "a@x.com", "wrong")
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("status %d: expected uniform unauthorized, got %v", status, err)
		}
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("status %d: backend reason leaked: %q", status, typed.Message())
		}
	}
}

func TestSignUpConflict(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"msg":"User already registered"}`, http.StatusUnprocessableEntity)
	}))

	_, err := client.SignUp(context.Background(), "a@x.com", "secret1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRateLimitPropagatesDistinctly(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.SignUp(context.Background(), "a@x.com", "secret1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit code, got %v", err)
	}
}

func TestUpdateEmailRequiresToken(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())
	_, err := client.UpdateEmail(context.Background(), " ", "new@x.com")
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for missing token, got %v", err)
	}
}

func TestUpdateEmailForwardsBearer(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/auth/v1/user" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Fatalf("caller token not re-established, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(Identity{ID: "user-1", Email: "new@x.com"})
	}))

	ident, err := client.UpdateEmail(context.Background(), "user-token", "new@x.com")
	if err != nil {
		t.Fatalf("update email: %v", err)
	}
	if ident.Email != "new@x.com" {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestDeleteUserUsesAdminCredential(t *testing.T) {
	var sawBearer string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/auth/v1/admin/users/user-1" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		sawBearer = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.DeleteUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if sawBearer != "Bearer service-key" {
		t.Fatalf("expected admin credential, got %q", sawBearer)
	}
}

func TestSignOutWithEmptyTokenIsNoop(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	if err := client.SignOut(context.Background(), ""); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if called {
		t.Fatalf("empty token must not hit the backend")
	}
}
