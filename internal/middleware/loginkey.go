package middleware

import (
	"crypto/subtle"
	"net/http"

	"tycoon-engine/pkg/apierror"
)

// RequireLoginKey guards admin routes with the X-Login-Key header. An empty
// key disables the routes entirely.
func RequireLoginKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				writeError(w, apierror.Forbidden("admin access is disabled"))
				return
			}
			got := r.Header.Get("X-Login-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, apierror.Unauthorized("Invalid login key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
