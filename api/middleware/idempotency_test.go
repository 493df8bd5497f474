package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

type stubIdempotencyStore struct {
	records map[string]string
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{records: map[string]string{}}
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, key string) string {
	return "idempotency:" + scope + ":" + key
}

func (s *stubIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.records[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *stubIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = value.(string)
	return true, nil
}

func idempotencyRouter(store IdempotencyStore, calls *int) http.Handler {
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), "user-1")))
		})
	})
	r.Group(func(g chi.Router) {
		g.Use(Idempotency(store, logg))
		handler := func(w http.ResponseWriter, req *http.Request) {
			*calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":"movie-1"}}`))
		}
		g.Post("/api/v1/watchlist", handler)
		g.Post("/watchlist", handler)
	})
	return r
}

func guardedRequest(method, target, key, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeaderName, key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0
	router := idempotencyRouter(store, &calls)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, guardedRequest(http.MethodPost, "/api/v1/watchlist", "retry-1", `{"title":"Heat"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request status = %d, want %d", first.Code, http.StatusCreated)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, guardedRequest(http.MethodPost, "/api/v1/watchlist", "retry-1", `{"title":"Heat"}`))
	if second.Code != http.StatusCreated {
		t.Fatalf("replayed status = %d, want %d", second.Code, http.StatusCreated)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body = %q, want %q", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("replayed content type = %q", ct)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0
	router := idempotencyRouter(store, &calls)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, guardedRequest(http.MethodPost, "/api/v1/watchlist", "retry-1", `{"title":"Heat"}`))

	second := httptest.NewRecorder()
	router.ServeHTTP(second, guardedRequest(http.MethodPost, "/api/v1/watchlist", "retry-1", `{"title":"Ronin"}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", second.Code, http.StatusConflict)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0
	router := idempotencyRouter(store, &calls)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guardedRequest(http.MethodPost, "/api/v1/watchlist", "", `{"title":"Heat"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if calls != 0 {
		t.Fatal("handler ran for a request missing the key")
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0
	router := idempotencyRouter(store, &calls)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guardedRequest(http.MethodPost, "/watchlist", "", `{"title":"Heat"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencyNilStorePassesThrough(t *testing.T) {
	calls := 0
	router := idempotencyRouter(nil, &calls)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guardedRequest(http.MethodPost, "/api/v1/watchlist", "", `{"title":"Heat"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}
