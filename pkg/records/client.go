package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reelkeep/reelkeep-backend/pkg/config"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

var errBaseURLRequired = errors.New("records base url is required")

// Filters narrow a table operation to matching rows. Values use the
// store's operator syntax, e.g. Eq("owner_id", id) or "eq.false".
type Filters url.Values

func NewFilters() Filters {
	return Filters{}
}

// Eq adds an equality match on the column.
func (f Filters) Eq(column string, value any) Filters {
	url.Values(f).Set(column, fmt.Sprintf("eq.%v", value))
	return f
}

// Order sets the result ordering, e.g. Order("date_added", false) for
// newest first.
func (f Filters) Order(column string, ascending bool) Filters {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	url.Values(f).Set("order", column+"."+dir)
	return f
}

// Client is a thin wrapper over the relational record store's HTTP surface.
// Every row-touching call forwards the caller's access token so the store
// applies its own ownership policy in addition to the filters we send.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient builds the record store client from config.
func NewClient(cfg config.RecordsConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

// Select reads matching rows into dest (a pointer to a slice).
func (c *Client) Select(ctx context.Context, token, table string, filters Filters, dest any) error {
	resp, err := c.do(ctx, http.MethodGet, table, filters, token, nil, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode record rows")
	}
	return nil
}

// Insert writes one row and decodes the stored representation into dest.
func (c *Client) Insert(ctx context.Context, token, table string, payload, dest any) error {
	resp, err := c.do(ctx, http.MethodPost, table, nil, token, payload, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeSingle(resp.Body, dest)
}

// Update patches matching rows and returns how many were written. The
// filter match happens atomically at the store, which is what makes
// conditional state transitions race-safe across server instances.
func (c *Client) Update(ctx context.Context, token, table string, filters Filters, payload, dest any) (int, error) {
	resp, err := c.do(ctx, http.MethodPatch, table, filters, token, payload, true)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return decodeAffected(resp.Body, dest)
}

// Delete removes matching rows and returns how many were removed.
func (c *Client) Delete(ctx context.Context, token, table string, filters Filters) (int, error) {
	resp, err := c.do(ctx, http.MethodDelete, table, filters, token, nil, true)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return decodeAffected(resp.Body, nil)
}

func (c *Client) do(ctx context.Context, method, table string, filters Filters, token string, payload any, representation bool) (*http.Response, error) {
	if strings.TrimSpace(table) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "record table is required")
	}

	endpoint := c.baseURL + "/rest/v1/" + table
	if len(filters) > 0 {
		endpoint += "?" + url.Values(filters).Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode record payload")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build record request")
	}
	req.Header.Set("apikey", c.apiKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if representation {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record store unreachable")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, c.mapFailure(resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) mapFailure(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "record store rejected the credentials")
	case status == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "record table not found")
	case status == http.StatusConflict:
		return pkgerrors.New(pkgerrors.CodeConflict, "record conflict")
	case status == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeRateLimit, "record store throttled the request")
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("record store returned %d", status))
	}
}

// decodeAffected reads a representation array, optionally retaining it in
// dest (a pointer to a slice), and reports the row count.
func decodeAffected(body io.Reader, dest any) (int, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read record response")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return 0, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode record rows")
	}
	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode record rows")
		}
	}
	return len(rows), nil
}

func decodeSingle(body io.Reader, dest any) error {
	var rows []json.RawMessage
	if err := json.NewDecoder(body).Decode(&rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode record rows")
	}
	if len(rows) == 0 {
		return pkgerrors.New(pkgerrors.CodeDependency, "record store returned no representation")
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode record row")
	}
	return nil
}
