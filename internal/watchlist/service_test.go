package watchlist

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelkeep/reelkeep-backend/pkg/audit"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

type stubRepo struct {
	movies       []Movie
	inserted     *Movie
	markPatch    map[string]any
	markErr      error
	updatePatch  map[string]any
	updateErr    error
	updateCalls  int
	deleteErr    error
	deletedIDs   []string
	listedStates []bool
}

func (r *stubRepo) ListByState(_ context.Context, _, _ string, watched bool) ([]Movie, error) {
	r.listedStates = append(r.listedStates, watched)
	return r.movies, nil
}

func (r *stubRepo) Insert(_ context.Context, _ string, movie *Movie) (*Movie, error) {
	stored := *movie
	stored.ID = "movie-1"
	r.inserted = &stored
	return &stored, nil
}

func (r *stubRepo) MarkWatched(_ context.Context, _, movieID, ownerID string, patch map[string]any) (*Movie, error) {
	if r.markErr != nil {
		return nil, r.markErr
	}
	r.markPatch = patch
	date := patch["watched_date"].(string)
	return &Movie{ID: movieID, OwnerID: ownerID, Watched: true, WatchedDate: &date}, nil
}

func (r *stubRepo) UpdateWatched(_ context.Context, _, movieID, ownerID string, patch map[string]any) (*Movie, error) {
	r.updateCalls++
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	r.updatePatch = patch
	m := &Movie{ID: movieID, OwnerID: ownerID, Watched: true}
	if v, ok := patch["rating"]; ok {
		rating := v.(int)
		m.Rating = &rating
	}
	if v, ok := patch["review"]; ok {
		review := v.(string)
		m.Review = &review
	}
	return m, nil
}

func (r *stubRepo) Delete(_ context.Context, _, movieID, _ string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedIDs = append(r.deletedIDs, movieID)
	return nil
}

func newTestService(t *testing.T) (Service, *stubRepo, *audit.Recorder) {
	t.Helper()
	repo := &stubRepo{}
	sink := &audit.Recorder{}
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		AuditSink: sink,
		Logger:    logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, sink
}

func TestAddMovieDesireScaleBounds(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := []struct {
		scale int
		ok    bool
	}{
		{0, false},
		{1, true},
		{5, true},
		{6, false},
	}
	for _, tc := range cases {
		_, err := svc.AddMovie(context.Background(), "tok", "owner-1", AddMovieRequest{
			Title:       "Dune",
			Genre:       "sci-fi",
			DesireScale: tc.scale,
		})
		if tc.ok && err != nil {
			t.Fatalf("desire scale %d: unexpected error %v", tc.scale, err)
		}
		if !tc.ok && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("desire scale %d: expected validation error, got %v", tc.scale, err)
		}
	}
}

func TestAddMovieRequiredFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.AddMovie(context.Background(), "tok", "owner-1", AddMovieRequest{Genre: "sci-fi", DesireScale: 3}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}
	if _, err := svc.AddMovie(context.Background(), "tok", "owner-1", AddMovieRequest{Title: "Dune", DesireScale: 3}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing genre, got %v", err)
	}
	if _, err := svc.AddMovie(context.Background(), "tok", "", AddMovieRequest{Title: "Dune", Genre: "sci-fi", DesireScale: 3}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for missing owner, got %v", err)
	}
}

func TestAddMovieSnapshotsMetadata(t *testing.T) {
	svc, repo, sink := newTestService(t)

	movie, err := svc.AddMovie(context.Background(), "tok", "owner-1", AddMovieRequest{
		Title:       "Dune",
		Genre:       "sci-fi",
		DesireScale: 5,
		Metadata: &ExternalMetadata{
			ExternalID:  438631,
			PosterPath:  "/dune.jpg",
			Overview:    "Spice.",
			ReleaseDate: "2021-09-15",
			VoteAverage: 7.8,
		},
	})
	if err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	if movie.Watched {
		t.Fatal("new movie must start unwatched")
	}
	if movie.ExternalID == nil || *movie.ExternalID != 438631 {
		t.Fatalf("expected external id snapshot, got %+v", movie)
	}
	if repo.inserted.OwnerID != "owner-1" {
		t.Fatalf("expected owner stamped server-side, got %q", repo.inserted.OwnerID)
	}
	if !sink.Has("movie.added") {
		t.Fatal("expected movie.added audit event")
	}
}

func TestMarkWatchedSetsLocalCalendarDate(t *testing.T) {
	svc, repo, sink := newTestService(t)

	movie, err := svc.MarkWatched(context.Background(), "tok", "movie-1", "owner-1", MarkWatchedRequest{})
	if err != nil {
		t.Fatalf("MarkWatched: %v", err)
	}
	if !movie.Watched {
		t.Fatal("expected watched movie")
	}
	want := time.Now().Local().Format("2006-01-02")
	if repo.markPatch["watched_date"] != want {
		t.Fatalf("expected local calendar date %q, got %v", want, repo.markPatch["watched_date"])
	}
	if repo.markPatch["watched"] != true {
		t.Fatal("expected watched flag in patch")
	}
	if repo.updateCalls != 0 {
		t.Fatal("no review patch expected without rating/review")
	}
	if !sink.Has("movie.watched") {
		t.Fatal("expected movie.watched audit event")
	}
}

func TestMarkWatchedAppliesRating(t *testing.T) {
	svc, repo, _ := newTestService(t)
	rating := 4

	movie, err := svc.MarkWatched(context.Background(), "tok", "movie-1", "owner-1", MarkWatchedRequest{Rating: &rating})
	if err != nil {
		t.Fatalf("MarkWatched: %v", err)
	}
	if movie.Rating == nil || *movie.Rating != 4 {
		t.Fatalf("expected rating 4, got %+v", movie.Rating)
	}
	if movie.Review != nil {
		t.Fatalf("expected nil review, got %v", *movie.Review)
	}
	if repo.updateCalls != 1 {
		t.Fatalf("expected one review patch, got %d", repo.updateCalls)
	}
}

func TestMarkWatchedAlreadyWatchedIsNotFound(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.markErr = pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")

	_, err := svc.MarkWatched(context.Background(), "tok", "movie-1", "owner-1", MarkWatchedRequest{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkWatchedKeepsTransitionWhenReviewApplyFails(t *testing.T) {
	svc, repo, sink := newTestService(t)
	repo.updateErr = errors.New("store write failed")
	rating := 4

	movie, err := svc.MarkWatched(context.Background(), "tok", "movie-1", "owner-1", MarkWatchedRequest{Rating: &rating})
	if err != nil {
		t.Fatalf("transition must not be rolled back, got %v", err)
	}
	if !movie.Watched {
		t.Fatal("expected watched movie despite failed rating apply")
	}
	if movie.Rating != nil {
		t.Fatal("rating must not be echoed when the apply failed")
	}
	if !sink.Has("movie.review_apply_failed") {
		t.Fatal("expected the failed apply to be audited")
	}
}

func TestMarkWatchedRejectsOutOfRangeRating(t *testing.T) {
	svc, repo, _ := newTestService(t)
	rating := 6

	_, err := svc.MarkWatched(context.Background(), "tok", "movie-1", "owner-1", MarkWatchedRequest{Rating: &rating})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.markPatch != nil {
		t.Fatal("invalid rating must be rejected before the transition")
	}
}

func TestUpdateReviewNoFieldsIsNoOp(t *testing.T) {
	svc, repo, _ := newTestService(t)

	movie, err := svc.UpdateReview(context.Background(), "tok", "movie-1", "owner-1", UpdateReviewRequest{})
	if err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
	if movie != nil {
		t.Fatal("no-op must not return a movie")
	}
	if repo.updateCalls != 0 {
		t.Fatal("no-op must not touch the store")
	}
}

func TestUpdateReviewOnUnwatchedIsNotFound(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.updateErr = pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
	review := "great"

	_, err := svc.UpdateReview(context.Background(), "tok", "movie-1", "owner-1", UpdateReviewRequest{Review: &review})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveMovieAudits(t *testing.T) {
	svc, repo, sink := newTestService(t)

	if err := svc.RemoveMovie(context.Background(), "tok", "movie-1", "owner-1"); err != nil {
		t.Fatalf("RemoveMovie: %v", err)
	}
	if len(repo.deletedIDs) != 1 {
		t.Fatalf("expected one delete, got %v", repo.deletedIDs)
	}
	if !sink.Has("movie.removed") {
		t.Fatal("expected movie.removed audit event")
	}
}

func TestListRequiresOwner(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.ListUnwatched(context.Background(), "tok", " "); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.ListWatched(context.Background(), "tok", ""); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
