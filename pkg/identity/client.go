package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reelkeep/reelkeep-backend/pkg/config"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

const invalidCredentialsMessage = "invalid credentials"

var (
	errBaseURLRequired = errors.New("identity base url is required")
	errAPIKeyRequired  = errors.New("identity api key is required")
)

// Identity is the remote account as the backend reports it.
type Identity struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	ProfileImageRef string `json:"profile_image_ref,omitempty"`
}

// TokenGrant is the credential set issued on a successful password grant.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     Identity
}

// Client talks to the remote account/password platform. It owns the service
// credential; callers only ever see issued user tokens.
type Client struct {
	baseURL  string
	apiKey   string
	adminKey string
	http     *http.Client
	logger   *logger.Logger
	now      func() time.Time
}

// NewClient validates the credentials and builds the identity client.
func NewClient(cfg config.IdentityConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		adminKey: cfg.AdminKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logg,
		now:      time.Now,
	}, nil
}

// SignUp creates a remote identity. No tokens are issued here; the caller
// still has to log in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	var out struct {
		User Identity `json:"user"`
		// Some deployments flatten the user into the top level.
		Identity
	}
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", c.apiKey, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	ident := out.User
	if ident.ID == "" {
		ident = out.Identity
	}
	if ident.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity backend returned no user")
	}
	return &ident, nil
}

// SignIn performs a password grant. Every backend rejection collapses to a
// uniform unauthorized error so callers cannot distinguish unknown emails
// from wrong passwords.
func (c *Client) SignIn(ctx context.Context, email, password string) (*TokenGrant, error) {
	var out struct {
		AccessToken  string   `json:"access_token"`
		RefreshToken string   `json:"refresh_token"`
		ExpiresIn    int64    `json:"expires_in"`
		User         Identity `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.apiKey, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && (typed.Code() == pkgerrors.CodeUnauthorized ||
			typed.Code() == pkgerrors.CodeValidation ||
			typed.Code() == pkgerrors.CodeForbidden) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}
	if out.AccessToken == "" || out.User.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity backend returned an incomplete grant")
	}
	return &TokenGrant{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    c.grantExpiry(out.AccessToken, out.ExpiresIn),
		Identity:     out.User,
	}, nil
}

// SignOut revokes the remote token. Callers treat failures as best-effort.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// UpdateEmail re-establishes the remote identity context with the caller's
// token and changes the account email.
func (c *Client) UpdateEmail(ctx context.Context, accessToken, newEmail string) (*Identity, error) {
	return c.updateUser(ctx, accessToken, map[string]string{"email": newEmail})
}

// UpdatePassword changes the account password using the caller's token.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) (*Identity, error) {
	return c.updateUser(ctx, accessToken, map[string]string{"password": newPassword})
}

func (c *Client) updateUser(ctx context.Context, accessToken string, payload map[string]string) (*Identity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access token")
	}
	var out Identity
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, payload, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity backend returned no user")
	}
	return &out, nil
}

// DeleteUser removes the identity using the elevated service credential.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(c.adminKey) == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "identity admin credential not configured")
	}
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+userID, c.adminKey, nil, nil)
}

func (c *Client) grantExpiry(accessToken string, expiresIn int64) time.Time {
	if expiresIn > 0 {
		return c.now().Add(time.Duration(expiresIn) * time.Second)
	}
	// Fall back to the exp claim. The token is the backend's to verify; we
	// only need the expiry to size the local session TTL.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Time{}
}

func (c *Client) do(ctx context.Context, method, path, bearer string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode identity request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build identity request")
	}
	req.Header.Set("apikey", c.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "identity backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapFailure(resp)
	}

	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode identity response")
	}
	return nil
}

func (c *Client) mapFailure(resp *http.Response) error {
	// Bodies are drained but never echoed: backend messages can carry
	// account-existence hints.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeRateLimit, "identity backend throttled the request")
	case resp.StatusCode == http.StatusUnauthorized:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	case resp.StatusCode == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeForbidden, "identity operation not permitted")
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "identity not found")
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return pkgerrors.New(pkgerrors.CodeConflict, "identity already registered")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("identity backend rejected the request (%d)", resp.StatusCode))
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("identity backend returned %d", resp.StatusCode))
	}
}
