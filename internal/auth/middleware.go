package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

// UserIDKey is the context key under which the authenticated user's ID is
// stored.
const UserIDKey = contextKey("userID")

// UserIDFromContext returns the authenticated user's ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok
}

// Middleware protects routes behind token verification. The token is taken
// from the Authorization header, falling back to the "token" cookie.
func (ti *TokenIssuer) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, "Bearer ")
				if len(parts) == 2 {
					tokenStr = parts[1]
				}
			}

			if tokenStr == "" {
				cookie, err := r.Cookie("token")
				if err != nil {
					http.Error(w, "Missing auth token", http.StatusUnauthorized)
					return
				}
				tokenStr = cookie.Value
			}

			if tokenStr == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}

			userID, err := ti.Verify(tokenStr)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					http.Error(w, "Auth token expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
