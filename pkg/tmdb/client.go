package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reelkeep/reelkeep-backend/pkg/config"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

var errAPIKeyRequired = errors.New("tmdb api key is required")

// Movie is a single candidate record from the metadata service.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

// SearchResult is a page of candidates plus the upstream total.
type SearchResult struct {
	Results      []Movie `json:"results"`
	TotalResults int     `json:"total_results"`
}

// Client queries the third-party movie metadata service. The API key stays
// server-side; it is appended to upstream requests and never surfaced to
// callers. The client performs no retries — retry policy belongs to the
// caller or the surrounding infrastructure.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient validates the credential and builds the metadata client.
func NewClient(cfg config.TMDBConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
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

// SearchMovies looks up candidates by title. An empty result list is a
// success, not an error.
func (c *Client) SearchMovies(ctx context.Context, query string) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	params := url.Values{}
	params.Set("query", query)

	var out SearchResult
	if err := c.get(ctx, "/search/movie", params, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []Movie{}
	}
	return &out, nil
}

// MovieByID fetches one record by its upstream identifier.
func (c *Client) MovieByID(ctx context.Context, externalID string) (*Movie, error) {
	id, err := strconv.Atoi(strings.TrimSpace(externalID))
	if err != nil || id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external id must be a positive integer")
	}
	var out Movie
	if err := c.get(ctx, "/movie/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Popular returns the service's current popular list.
func (c *Client) Popular(ctx context.Context) (*SearchResult, error) {
	var out SearchResult
	if err := c.get(ctx, "/movie/popular", nil, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []Movie{}
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, redactCredential(err), "build metadata request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, redactCredential(err), "metadata service unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return pkgerrors.New(pkgerrors.CodeRateLimit, "metadata service throttled the request")
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return pkgerrors.New(pkgerrors.CodeNotFound, "metadata record not found")
	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("metadata service returned %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode metadata response")
	}
	return nil
}

// redactCredential rewrites request/transport errors before they enter the
// error chain. url.Error interpolates the full request URL into its message,
// which would put the api_key query value in the logs.
func redactCredential(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	// An unparseable URL cannot be scrubbed, so it is dropped outright.
	redacted := ""
	if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		q := u.Query()
		if q.Has("api_key") {
			q.Set("api_key", "REDACTED")
			u.RawQuery = q.Encode()
		}
		redacted = u.Redacted()
	}
	return &url.Error{Op: urlErr.Op, URL: redacted, Err: urlErr.Err}
}
