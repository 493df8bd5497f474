package search

import (
	"context"
	"testing"

	"github.com/reelkeep/reelkeep-backend/pkg/audit"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/tmdb"
)

type stubClient struct {
	searchCalls int
	lastQuery   string
	searchErr   error
	detailErr   error
}

func (c *stubClient) SearchMovies(_ context.Context, query string) (*tmdb.SearchResult, error) {
	c.searchCalls++
	c.lastQuery = query
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return &tmdb.SearchResult{Results: []tmdb.Movie{{ID: 438631, Title: "Dune"}}, TotalResults: 1}, nil
}

func (c *stubClient) MovieByID(_ context.Context, externalID string) (*tmdb.Movie, error) {
	if c.detailErr != nil {
		return nil, c.detailErr
	}
	return &tmdb.Movie{ID: 438631, Title: "Dune"}, nil
}

func (c *stubClient) Popular(_ context.Context) (*tmdb.SearchResult, error) {
	return &tmdb.SearchResult{Results: []tmdb.Movie{}}, nil
}

func newTestService(t *testing.T) (Service, *stubClient, *audit.Recorder) {
	t.Helper()
	client := &stubClient{}
	sink := &audit.Recorder{}
	svc, err := NewService(ServiceParams{Client: client, AuditSink: sink})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, client, sink
}

func TestSearchTrimsAndForwardsQuery(t *testing.T) {
	svc, client, sink := newTestService(t)

	result, err := svc.Search(context.Background(), "user-1", "  dune ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if client.lastQuery != "dune" {
		t.Fatalf("expected trimmed query, got %q", client.lastQuery)
	}
	if result.TotalResults != 1 {
		t.Fatalf("expected one result, got %d", result.TotalResults)
	}
	if !sink.Has("search.performed") {
		t.Fatal("expected search.performed audit event")
	}
}

func TestSearchRejectsBlankQueryBeforeProvider(t *testing.T) {
	svc, client, _ := newTestService(t)

	_, err := svc.Search(context.Background(), "user-1", "   ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if client.searchCalls != 0 {
		t.Fatal("blank query must not reach the provider")
	}
}

func TestSearchPropagatesProviderFailure(t *testing.T) {
	svc, client, _ := newTestService(t)
	client.searchErr = pkgerrors.New(pkgerrors.CodeRateLimit, "metadata provider throttled the request")

	_, err := svc.Search(context.Background(), "user-1", "dune")
	if !pkgerrors.IsCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit to pass through, got %v", err)
	}
}

func TestMovieDetailsRejectsMalformedID(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, id := range []string{"", "  ", "abc", "12a", "-5"} {
		_, err := svc.MovieDetails(context.Background(), "user-1", id)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("id %q: expected validation error, got %v", id, err)
		}
	}
}

func TestMovieDetailsPropagatesNotFound(t *testing.T) {
	svc, client, _ := newTestService(t)
	client.detailErr = pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")

	_, err := svc.MovieDetails(context.Background(), "user-1", "999999")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
