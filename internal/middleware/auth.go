package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Strob0t/StackForge/internal/domain/user"
)

type authUserCtxKey struct{}

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	ValidateAccessToken(token string) (*user.TokenClaims, error)
}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":               true,
	"/health/ready":         true,
	"/metrics":              true,
	"/api/v1/auth/login":    true,
	"/api/v1/auth/register": true,
}

// Auth returns middleware that resolves the caller from a Bearer token.
// The websocket endpoint takes the token from the ?token= query parameter.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			var token string
			if r.URL.Path == "/ws" {
				token = r.URL.Query().Get("token")
			} else if header := r.Header.Get("Authorization"); header != "" {
				token = strings.TrimPrefix(header, "Bearer ")
				if token == header {
					writeAuthError(w, "invalid authorization header")
					return
				}
			}
			if token == "" {
				writeAuthError(w, "authorization required")
				return
			}

			claims, err := verifier.ValidateAccessToken(token)
			if err != nil {
				writeAuthError(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), authUserCtxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified token claims, or nil.
func ClaimsFromContext(ctx context.Context) *user.TokenClaims {
	c, _ := ctx.Value(authUserCtxKey{}).(*user.TokenClaims)
	return c
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

// WithUserID stores a caller identity in ctx. Used by tests and admin tooling.
func WithUserID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, authUserCtxKey{}, &user.TokenClaims{UserID: id})
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
