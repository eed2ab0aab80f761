package middleware

import (
	"context"
	"net/http"
	"strings"

	"tycoon-engine/internal/model"
	"tycoon-engine/pkg/apierror"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// Authenticator resolves a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.TokenData, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Identity Authenticator
	// AllowQueryToken accepts ?token= for clients that cannot set headers,
	// such as browser websockets.
	AllowQueryToken bool
}

// NewAuthMiddleware creates an authentication middleware. Requests must carry
// the token of the current session in X-Token or as a Bearer token.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cfg.AllowQueryToken)
			if token == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use the X-Token header."))
				return
			}
			if cfg.Identity == nil {
				writeError(w, apierror.ServiceUnavailable("authentication is not configured"))
				return
			}

			tokenData, err := cfg.Identity.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, apierror.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), TokenDataKey, tokenData)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request, allowQuery bool) string {
	if token := r.Header.Get("X-Token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
