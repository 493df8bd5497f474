package watchlist

import (
	"context"
	"fmt"

	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/records"
)

const moviesTable = "movies"

type recordAPI interface {
	Select(ctx context.Context, token, table string, filters records.Filters, dest any) error
	Insert(ctx context.Context, token, table string, payload, dest any) error
	Update(ctx context.Context, token, table string, filters records.Filters, payload, dest any) (int, error)
	Delete(ctx context.Context, token, table string, filters records.Filters) (int, error)
}

// Repository maps movie operations onto the external record store. Every
// query carries the owner filter so a row belonging to someone else looks
// identical to a row that does not exist.
type Repository struct {
	store recordAPI
}

// NewRepository binds the repository to the record store client.
func NewRepository(store *records.Client) (*Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("record store client is required")
	}
	return &Repository{store: store}, nil
}

// ListByState returns the owner's movies in one watched state, newest
// first by the date field relevant to that state.
func (r *Repository) ListByState(ctx context.Context, token, ownerID string, watched bool) ([]Movie, error) {
	orderBy := "date_added"
	if watched {
		orderBy = "watched_date"
	}
	filters := records.NewFilters().
		Eq("owner_id", ownerID).
		Eq("watched", watched).
		Order(orderBy, false)

	movies := []Movie{}
	if err := r.store.Select(ctx, token, moviesTable, filters, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// Insert writes a new movie row and returns the stored representation.
func (r *Repository) Insert(ctx context.Context, token string, movie *Movie) (*Movie, error) {
	var stored Movie
	if err := r.store.Insert(ctx, token, moviesTable, movie, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// MarkWatched flips the row to watched only when it is still unwatched and
// owned by the caller. The store evaluates the filter and the write as one
// operation, so concurrent transitions cannot both match.
func (r *Repository) MarkWatched(ctx context.Context, token, movieID, ownerID string, patch map[string]any) (*Movie, error) {
	filters := records.NewFilters().
		Eq("id", movieID).
		Eq("owner_id", ownerID).
		Eq("watched", false)

	var rows []Movie
	count, err := r.store.Update(ctx, token, moviesTable, filters, patch, &rows)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
	}
	return &rows[0], nil
}

// UpdateWatched patches a watched row owned by the caller.
func (r *Repository) UpdateWatched(ctx context.Context, token, movieID, ownerID string, patch map[string]any) (*Movie, error) {
	filters := records.NewFilters().
		Eq("id", movieID).
		Eq("owner_id", ownerID).
		Eq("watched", true)

	var rows []Movie
	count, err := r.store.Update(ctx, token, moviesTable, filters, patch, &rows)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
	}
	return &rows[0], nil
}

// Delete removes the row regardless of watched state.
func (r *Repository) Delete(ctx context.Context, token, movieID, ownerID string) error {
	filters := records.NewFilters().
		Eq("id", movieID).
		Eq("owner_id", ownerID)

	count, err := r.store.Delete(ctx, token, moviesTable, filters)
	if err != nil {
		return err
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
	}
	return nil
}

// DeleteAllForOwner wipes every movie the owner has. Used by account
// deletion; zero rows removed is fine.
func (r *Repository) DeleteAllForOwner(ctx context.Context, token, ownerID string) error {
	filters := records.NewFilters().Eq("owner_id", ownerID)
	_, err := r.store.Delete(ctx, token, moviesTable, filters)
	return err
}
