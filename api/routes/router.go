package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelkeep/reelkeep-backend/api/controllers"
	"github.com/reelkeep/reelkeep-backend/api/middleware"
	"github.com/reelkeep/reelkeep-backend/internal/auth"
	"github.com/reelkeep/reelkeep-backend/internal/search"
	"github.com/reelkeep/reelkeep-backend/internal/watchlist"
	"github.com/reelkeep/reelkeep-backend/pkg/config"
	"github.com/reelkeep/reelkeep-backend/pkg/db"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
	"github.com/reelkeep/reelkeep-backend/pkg/metrics"
)

// csrfExemptPatterns is the complete declared allow-list for the CSRF
// guard. Only the machine-to-machine mirror group belongs here; exemption
// is by exact route pattern so new routes never inherit it by placement.
var csrfExemptPatterns = []string{
	"/api/v1/watchlist",
	"/api/v1/watchlist/{movieId}/watched",
	"/api/v1/watchlist/{movieId}",
	"/api/v1/watched/{movieId}/review",
}

// SessionManager is the session surface the router's middleware needs.
type SessionManager interface {
	middleware.SessionLoader
	middleware.CSRFValidator
}

// Params bundles everything the router needs.
type Params struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               db.Pinger
	Cache            controllers.Pinger
	RateLimiter      middleware.RateLimiterStore
	Idempotency      middleware.IdempotencyStore
	Sessions         SessionManager
	AuthService      auth.Service
	WatchlistService watchlist.Service
	SearchService    search.Service
	Metrics          *metrics.RequestMetrics
	Registry         *prometheus.Registry
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.Metrics),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	exemptions := middleware.NewCSRFExemptions(csrfExemptPatterns...)
	sessionWall := middleware.SessionAuth(p.Sessions, cfg.Session, logg)
	csrfGuard := middleware.CSRF(p.Sessions, exemptions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Cache))
	})
	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.RateLimiter, logg)).
			Post("/register", controllers.AuthRegister(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimiter, logg)).
			Post("/login", controllers.AuthLogin(p.AuthService, cfg.Session, logg))

		r.Group(func(r chi.Router) {
			r.Use(sessionWall, csrfGuard)
			r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.Session, logg))
			r.Get("/csrf", controllers.AuthCSRF(logg))
			r.Get("/me", controllers.AuthSession(logg))
			r.Post("/email", controllers.AccountUpdateEmail(p.AuthService, logg))
			r.Post("/password", controllers.AccountUpdatePassword(p.AuthService, logg))
			r.Delete("/account", controllers.AccountDelete(p.AuthService, cfg.Session, logg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(sessionWall, csrfGuard, middleware.Idempotency(p.Idempotency, logg))

		// Routes are registered flat, not via subrouters, so the CSRF
		// guard sees the final route pattern when it checks the allow-list.
		mountWatchlist := func(r chi.Router, prefix string) {
			r.Get(prefix+"/watchlist", controllers.WatchlistUnwatched(p.WatchlistService, logg))
			r.Post(prefix+"/watchlist", controllers.WatchlistAdd(p.WatchlistService, logg))
			r.Put(prefix+"/watchlist/{movieId}/watched", controllers.WatchlistMarkWatched(p.WatchlistService, logg))
			r.Delete(prefix+"/watchlist/{movieId}", controllers.WatchlistRemove(p.WatchlistService, logg))
			r.Get(prefix+"/watched", controllers.WatchlistWatched(p.WatchlistService, logg))
			r.Put(prefix+"/watched/{movieId}/review", controllers.WatchlistUpdateReview(p.WatchlistService, logg))
		}

		mountWatchlist(r, "")

		// Machine-to-machine mirror of the watchlist surface. Same session
		// wall; mutations skip the CSRF guard via the declared allow-list
		// and carry an Idempotency-Key instead.
		mountWatchlist(r, "/api/v1")

		r.Route("/search", func(r chi.Router) {
			r.Get("/", controllers.SearchMovies(p.SearchService, logg))
			r.Get("/popular", controllers.SearchPopular(p.SearchService, logg))
			r.Get("/{externalId}", controllers.SearchMovieDetails(p.SearchService, logg))
		})
	})

	return r
}
