package watchlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reelkeep/reelkeep-backend/pkg/audit"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

// Service owns the movie lifecycle for a single authenticated owner. The
// caller's access token rides along on every store call so row-level
// policy at the store backs up the owner filters sent here.
type Service interface {
	ListUnwatched(ctx context.Context, token, ownerID string) ([]Movie, error)
	ListWatched(ctx context.Context, token, ownerID string) ([]Movie, error)
	AddMovie(ctx context.Context, token, ownerID string, req AddMovieRequest) (*Movie, error)
	MarkWatched(ctx context.Context, token, movieID, ownerID string, req MarkWatchedRequest) (*Movie, error)
	RemoveMovie(ctx context.Context, token, movieID, ownerID string) error
	UpdateReview(ctx context.Context, token, movieID, ownerID string, req UpdateReviewRequest) (*Movie, error)
}

type movieRepo interface {
	ListByState(ctx context.Context, token, ownerID string, watched bool) ([]Movie, error)
	Insert(ctx context.Context, token string, movie *Movie) (*Movie, error)
	MarkWatched(ctx context.Context, token, movieID, ownerID string, patch map[string]any) (*Movie, error)
	UpdateWatched(ctx context.Context, token, movieID, ownerID string, patch map[string]any) (*Movie, error)
	Delete(ctx context.Context, token, movieID, ownerID string) error
}

type service struct {
	repo   movieRepo
	sink   audit.Sink
	logger *logger.Logger
	now    func() time.Time
}

// ServiceParams groups dependencies for the watchlist service.
type ServiceParams struct {
	Repo      movieRepo
	AuditSink audit.Sink
	Logger    *logger.Logger
}

// NewService builds the watchlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("movie repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	sink := params.AuditSink
	if sink == nil {
		sink = audit.Nop{}
	}
	return &service{
		repo:   params.Repo,
		sink:   sink,
		logger: params.Logger,
		now:    time.Now,
	}, nil
}

func (s *service) ListUnwatched(ctx context.Context, token, ownerID string) ([]Movie, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListByState(ctx, token, ownerID, false)
}

func (s *service) ListWatched(ctx context.Context, token, ownerID string) ([]Movie, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListByState(ctx, token, ownerID, true)
}

func (s *service) AddMovie(ctx context.Context, token, ownerID string, req AddMovieRequest) (*Movie, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(req.Genre) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "genre is required")
	}
	if req.DesireScale < minDesireScale || req.DesireScale > maxDesireScale {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("desire scale must be between %d and %d", minDesireScale, maxDesireScale))
	}

	movie := &Movie{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Genre:       strings.TrimSpace(req.Genre),
		DesireScale: req.DesireScale,
		DateAdded:   s.now().UTC(),
		Watched:     false,
	}
	if req.Metadata != nil {
		movie.ExternalID = &req.Metadata.ExternalID
		if req.Metadata.PosterPath != "" {
			movie.PosterPath = &req.Metadata.PosterPath
		}
		if req.Metadata.Overview != "" {
			movie.Overview = &req.Metadata.Overview
		}
		if req.Metadata.ReleaseDate != "" {
			movie.ReleaseDate = &req.Metadata.ReleaseDate
		}
		if req.Metadata.VoteAverage != 0 {
			movie.VoteAverage = &req.Metadata.VoteAverage
		}
	}

	stored, err := s.repo.Insert(ctx, token, movie)
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, audit.Event{
		Action: "movie.added",
		UserID: ownerID,
		Fields: map[string]any{"movie_id": stored.ID},
	})
	return stored, nil
}

// MarkWatched transitions the movie to watched exactly once. When a rating
// or review is supplied it is applied as a follow-up write; a failure
// there leaves the movie watched without them rather than rolling back.
func (s *service) MarkWatched(ctx context.Context, token, movieID, ownerID string, req MarkWatchedRequest) (*Movie, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(movieID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
	}
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}

	// The watched date is the caller's calendar day, not a UTC instant.
	patch := map[string]any{
		"watched":      true,
		"watched_date": s.now().Local().Format("2006-01-02"),
	}
	watched, err := s.repo.MarkWatched(ctx, token, movieID, ownerID, patch)
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, audit.Event{
		Action: "movie.watched",
		UserID: ownerID,
		Fields: map[string]any{"movie_id": movieID},
	})

	if req.Rating == nil && req.Review == nil {
		return watched, nil
	}

	reviewed, reviewErr := s.applyReview(ctx, token, movieID, ownerID, req.Rating, req.Review)
	if reviewErr != nil {
		logCtx := s.logger.WithFields(ctx, map[string]any{"movie_id": movieID})
		s.logger.Error(logCtx, "rating/review apply failed after watched transition", reviewErr)
		s.sink.Emit(ctx, audit.Event{
			Action: "movie.review_apply_failed",
			UserID: ownerID,
			Fields: map[string]any{"movie_id": movieID, "error": reviewErr.Error()},
		})
		return watched, nil
	}
	return reviewed, nil
}

func (s *service) RemoveMovie(ctx context.Context, token, movieID, ownerID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if strings.TrimSpace(movieID) == "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
	}
	if err := s.repo.Delete(ctx, token, movieID, ownerID); err != nil {
		return err
	}
	s.sink.Emit(ctx, audit.Event{
		Action: "movie.removed",
		UserID: ownerID,
		Fields: map[string]any{"movie_id": movieID},
	})
	return nil
}

// UpdateReview edits the rating/review of a watched movie. With neither
// field supplied the call succeeds without touching the store.
func (s *service) UpdateReview(ctx context.Context, token, movieID, ownerID string, req UpdateReviewRequest) (*Movie, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(movieID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
	}
	if req.Rating == nil && req.Review == nil {
		return nil, nil
	}
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}

	updated, err := s.applyReview(ctx, token, movieID, ownerID, req.Rating, req.Review)
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, audit.Event{
		Action: "movie.review_updated",
		UserID: ownerID,
		Fields: map[string]any{"movie_id": movieID},
	})
	return updated, nil
}

func (s *service) applyReview(ctx context.Context, token, movieID, ownerID string, rating *int, review *string) (*Movie, error) {
	patch := map[string]any{}
	if rating != nil {
		patch["rating"] = *rating
	}
	if review != nil {
		patch["review"] = *review
	}
	return s.repo.UpdateWatched(ctx, token, movieID, ownerID, patch)
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "owner identity is required")
	}
	return nil
}

func validateRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < minRating || *rating > maxRating {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	return nil
}
