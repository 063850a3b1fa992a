package identity

import (
	"net/http"

	"github.com/dmitrymomot/storekeep/pkg/cookie"
	"github.com/dmitrymomot/storekeep/pkg/response"
)

// SessionCookieName is the cookie carrying the signed session secret.
const SessionCookieName = "storekeep_session"

// RequireAuth rejects unauthenticated requests with 401 and stores the
// resolved user in the request context for downstream handlers.
func RequireAuth(svc *Service, cookies *cookie.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret, err := cookies.GetSigned(r, SessionCookieName)
			if err != nil {
				response.Error(w, response.ErrUnauthorized)
				return
			}

			user, err := svc.CurrentUser(r.Context(), secret)
			if err != nil {
				response.Error(w, err)
				return
			}
			if user == nil {
				// Stale cookie with no live session behind it.
				cookies.Delete(w, SessionCookieName)
				response.Error(w, response.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}
