package session

import (
	"time"

	"github.com/google/uuid"
)

// AuthContext carries the identity backend credentials bound to a session.
// It is passed by reference only to operations that re-authenticate against
// the backend and must never be logged in full.
type AuthContext struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Redacted returns a log-safe projection of the auth context.
func (a AuthContext) Redacted() map[string]any {
	return map[string]any{
		"access_token":  redactToken(a.AccessToken),
		"refresh_token": redactToken(a.RefreshToken),
		"expires_at":    a.ExpiresAt,
	}
}

func (a AuthContext) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}

func redactToken(token string) string {
	if len(token) <= 8 {
		return "[redacted]"
	}
	return token[:4] + "…[redacted]"
}

// Session is the single server-side record for a signed-in user.
type Session struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Auth      AuthContext `json:"auth"`
	CSRFToken string      `json:"csrf_token"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewID produces the opaque session identifier used as cookie value and
// Redis key suffix.
func NewID() string {
	return uuid.NewString()
}
