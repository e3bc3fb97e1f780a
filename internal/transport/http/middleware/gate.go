package middleware

import (
	"net/http"

	"frpops/internal/domain/auth"
	"frpops/internal/transport/http/api"
)

// RequireDestination gates a route group on the destination resolved from the
// session's jabatan. The jabatan is re-routed here rather than trusting the
// destination claim alone, so a stale token follows the current rule table.
func RequireDestination(destination auth.Destination) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if auth.Route(user.Jabatan) != destination {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient access", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
