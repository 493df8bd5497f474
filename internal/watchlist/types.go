package watchlist

import "time"

const (
	minDesireScale = 1
	maxDesireScale = 5
	minRating      = 1
	maxRating      = 5
)

// Movie is a row in the external record store. Watched-state fields are
// nil while the movie is unwatched; the store enforces the same shape.
type Movie struct {
	ID          string    `json:"id,omitempty"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre"`
	DesireScale int       `json:"desire_scale"`
	DateAdded   time.Time `json:"date_added"`
	Watched     bool      `json:"watched"`
	WatchedDate *string   `json:"watched_date,omitempty"`
	Rating      *int      `json:"rating,omitempty"`
	Review      *string   `json:"review,omitempty"`

	ExternalID  *int64   `json:"external_id,omitempty"`
	PosterPath  *string  `json:"poster_path,omitempty"`
	Overview    *string  `json:"overview,omitempty"`
	ReleaseDate *string  `json:"release_date,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
}

// ExternalMetadata is the optional descriptive snapshot captured from the
// metadata service when a movie is added.
type ExternalMetadata struct {
	ExternalID  int64   `json:"external_id" validate:"required"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

// AddMovieRequest creates an unwatched movie for the caller.
type AddMovieRequest struct {
	Title       string            `json:"title" validate:"required"`
	Genre       string            `json:"genre" validate:"required"`
	DesireScale int               `json:"desire_scale" validate:"required"`
	Metadata    *ExternalMetadata `json:"metadata,omitempty"`
}

// MarkWatchedRequest optionally attaches a rating and review alongside the
// state transition.
type MarkWatchedRequest struct {
	Rating *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review *string `json:"review,omitempty"`
}

// UpdateReviewRequest edits the rating/review of a watched movie.
type UpdateReviewRequest struct {
	Rating *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review *string `json:"review,omitempty"`
}
