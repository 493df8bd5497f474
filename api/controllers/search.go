package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reelkeep/reelkeep-backend/api/middleware"
	"github.com/reelkeep/reelkeep-backend/api/responses"
	"github.com/reelkeep/reelkeep-backend/internal/search"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

// SearchMovies proxies a title query to the metadata provider.
func SearchMovies(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("query"))
		result, err := svc.Search(ctx, middleware.UserIDFromContext(ctx), query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SearchMovieDetails fetches one movie's metadata by its external id.
func SearchMovieDetails(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}

		externalID := strings.TrimSpace(chi.URLParam(r, "externalId"))
		movie, err := svc.MovieDetails(ctx, middleware.UserIDFromContext(ctx), externalID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, movie)
	}
}

// SearchPopular returns the provider's current popular titles.
func SearchPopular(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}

		result, err := svc.Popular(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
