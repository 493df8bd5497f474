package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelkeep/reelkeep-backend/pkg/audit"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/tmdb"
)

// Service fronts the metadata search provider for signed-in callers. It is
// stateless; failures surface with their taxonomy code and are never
// retried here.
type Service interface {
	Search(ctx context.Context, userID, query string) (*tmdb.SearchResult, error)
	MovieDetails(ctx context.Context, userID, externalID string) (*tmdb.Movie, error)
	Popular(ctx context.Context) (*tmdb.SearchResult, error)
}

type metadataClient interface {
	SearchMovies(ctx context.Context, query string) (*tmdb.SearchResult, error)
	MovieByID(ctx context.Context, externalID string) (*tmdb.Movie, error)
	Popular(ctx context.Context) (*tmdb.SearchResult, error)
}

type service struct {
	client metadataClient
	sink   audit.Sink
}

// ServiceParams groups dependencies for the search service.
type ServiceParams struct {
	Client    metadataClient
	AuditSink audit.Sink
}

// NewService builds the metadata search service.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("metadata client is required")
	}
	sink := params.AuditSink
	if sink == nil {
		sink = audit.Nop{}
	}
	return &service{client: params.Client, sink: sink}, nil
}

func (s *service) Search(ctx context.Context, userID, query string) (*tmdb.SearchResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	result, err := s.client.SearchMovies(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, audit.Event{
		Action: "search.performed",
		UserID: userID,
		Fields: map[string]any{"results": result.TotalResults},
	})
	return result, nil
}

func (s *service) MovieDetails(ctx context.Context, userID, externalID string) (*tmdb.Movie, error) {
	externalID = strings.TrimSpace(externalID)
	if !validExternalID(externalID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external id must be a positive integer")
	}
	movie, err := s.client.MovieByID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, audit.Event{
		Action: "search.details_viewed",
		UserID: userID,
		Fields: map[string]any{"external_id": externalID},
	})
	return movie, nil
}

func (s *service) Popular(ctx context.Context) (*tmdb.SearchResult, error) {
	return s.client.Popular(ctx)
}

func validExternalID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
