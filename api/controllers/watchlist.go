package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reelkeep/reelkeep-backend/api/middleware"
	"github.com/reelkeep/reelkeep-backend/api/responses"
	"github.com/reelkeep/reelkeep-backend/api/validators"
	"github.com/reelkeep/reelkeep-backend/internal/watchlist"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

type watchlistCaller struct {
	token   string
	ownerID string
}

func resolveCaller(r *http.Request) (watchlistCaller, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return watchlistCaller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return watchlistCaller{token: sess.Auth.AccessToken, ownerID: sess.UserID}, nil
}

// WatchlistUnwatched returns the caller's unwatched movies, newest first.
func WatchlistUnwatched(svc watchlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "watchlist service unavailable"))
			return
		}

		caller, err := resolveCaller(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movies, err := svc.ListUnwatched(ctx, caller.token, caller.ownerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, movies)
	}
}

// WatchlistWatched returns the caller's watched movies, newest first.
func WatchlistWatched(svc watchlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "watchlist service unavailable"))
			return
		}

		caller, err := resolveCaller(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movies, err := svc.ListWatched(ctx, caller.token, caller.ownerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, movies)
	}
}

// WatchlistAdd creates an unwatched movie for the caller.
func WatchlistAdd(svc watchlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "watchlist service unavailable"))
			return
		}

		caller, err := resolveCaller(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req watchlist.AddMovieRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movie, err := svc.AddMovie(ctx, caller.token, caller.ownerID, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, movie)
	}
}

// WatchlistMarkWatched transitions the movie to watched, optionally
// attaching a rating and review in the same call.
func WatchlistMarkWatched(svc watchlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "watchlist service unavailable"))
			return
		}

		caller, err := resolveCaller(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movieID := strings.TrimSpace(chi.URLParam(r, "movieId"))
		if movieID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "movie id is required"))
			return
		}

		req := watchlist.MarkWatchedRequest{}
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		movie, err := svc.MarkWatched(ctx, caller.token, movieID, caller.ownerID, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, movie)
	}
}

// WatchlistRemove deletes the movie regardless of watched state.
func WatchlistRemove(svc watchlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "watchlist service unavailable"))
			return
		}

		caller, err := resolveCaller(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movieID := strings.TrimSpace(chi.URLParam(r, "movieId"))
		if movieID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "movie id is required"))
			return
		}

		if err := svc.RemoveMovie(ctx, caller.token, movieID, caller.ownerID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// WatchlistUpdateReview edits the rating/review of a watched movie.
func WatchlistUpdateReview(svc watchlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "watchlist service unavailable"))
			return
		}

		caller, err := resolveCaller(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movieID := strings.TrimSpace(chi.URLParam(r, "movieId"))
		if movieID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "movie id is required"))
			return
		}

		var req watchlist.UpdateReviewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movie, err := svc.UpdateReview(ctx, caller.token, movieID, caller.ownerID, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if movie == nil {
			responses.WriteSuccess(w, map[string]bool{"updated": false})
			return
		}
		responses.WriteSuccess(w, movie)
	}
}
