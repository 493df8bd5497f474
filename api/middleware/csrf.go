package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reelkeep/reelkeep-backend/api/responses"
	pkgerrors "github.com/reelkeep/reelkeep-backend/pkg/errors"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
	"github.com/reelkeep/reelkeep-backend/pkg/session"
)

// CSRFHeaderName carries the per-session token on mutating requests.
const CSRFHeaderName = "X-Csrf-Token"

// CSRFFormFieldName is the form-encoded fallback for clients that cannot
// set custom headers.
const CSRFFormFieldName = "csrf_token"

var csrfSafeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// CSRFExemptions is a declared allow-list of route patterns that skip the
// guard. Exemption is by exact pattern, never by path prefix, so a new
// route cannot silently opt out by where it is mounted.
type CSRFExemptions map[string]struct{}

func NewCSRFExemptions(patterns ...string) CSRFExemptions {
	set := CSRFExemptions{}
	for _, p := range patterns {
		set[p] = struct{}{}
	}
	return set
}

func (e CSRFExemptions) exempt(pattern string) bool {
	_, ok := e[pattern]
	return ok
}

// CSRFValidator compares a submitted token against the session-bound one.
type CSRFValidator interface {
	ValidateCSRF(sess *session.Session, provided string) bool
}

// CSRF rejects state-changing requests whose header token does not match
// the session-bound token. Runs after SessionAuth; a valid session alone
// is not enough to mutate state.
func CSRF(store CSRFValidator, exemptions CSRFExemptions, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if csrfSafeMethods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			if rctx := chi.RouteContext(r.Context()); rctx != nil && exemptions.exempt(rctx.RoutePattern()) {
				next.ServeHTTP(w, r)
				return
			}

			sess := SessionFromContext(r.Context())
			provided := r.Header.Get(CSRFHeaderName)
			if provided == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
				provided = r.PostFormValue(CSRFFormFieldName)
			}
			if !store.ValidateCSRF(sess, provided) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "csrf token missing or invalid"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
