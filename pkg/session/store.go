package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/reelkeep/reelkeep-backend/pkg/config"
	redisclient "github.com/reelkeep/reelkeep-backend/pkg/redis"
)

const csrfTokenBytes = 32

var ErrNotFound = errors.New("session not found")

type sessionBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Store persists sessions in Redis with a TTL bounded by the identity
// token's validity. One entry per session id; no cross-session state.
type Store struct {
	backend    sessionBackend
	keyer      sessionKeyer
	defaultTTL time.Duration
	now        func() time.Time
}

// NewStore constructs the Redis-backed session store.
func NewStore(client *redisclient.Client, cfg config.SessionConfig) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Store{
		backend:    client,
		keyer:      client,
		defaultTTL: cfg.DefaultTTL(),
		now:        time.Now,
	}, nil
}

// Create mints a session id and CSRF token for the given identity and
// writes the record with a TTL matching the access token expiry.
func (s *Store) Create(ctx context.Context, userID, email string, auth AuthContext) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	csrf, err := generateCSRFToken()
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:        NewID(),
		UserID:    userID,
		Email:     email,
		Auth:      auth,
		CSRFToken: csrf,
		CreatedAt: s.now().UTC(),
	}
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads the session or reports ErrNotFound for missing/expired entries.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrNotFound
	}
	raw, err := s.backend.Get(ctx, s.keyer.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.Auth.Expired(s.now()) {
		// The TTL normally reaps these; belt for clock skew between writes.
		_ = s.backend.Del(ctx, s.keyer.SessionKey(sessionID))
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Update rewrites an existing session in place, keeping its id and the TTL
// derived from the (possibly refreshed) auth context.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	return s.write(ctx, sess)
}

// Destroy removes the session. Destroying an absent session is not an error.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.backend.Del(ctx, s.keyer.SessionKey(sessionID))
}

// ValidateCSRF compares the submitted token against the session-bound value
// in constant time.
func (s *Store) ValidateCSRF(sess *Session, provided string) bool {
	if sess == nil || sess.CSRFToken == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(provided)) == 1
}

func (s *Store) write(ctx context.Context, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := s.defaultTTL
	if !sess.Auth.ExpiresAt.IsZero() {
		if remaining := sess.Auth.ExpiresAt.Sub(s.now()); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.backend.Set(ctx, s.keyer.SessionKey(sess.ID), string(payload), ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func generateCSRFToken() (string, error) {
	bytes := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
