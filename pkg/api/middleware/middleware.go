package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cbodonnell/skirmish/pkg/identity"
	"github.com/cbodonnell/skirmish/pkg/log"
)

type ContextKey int

const (
	// PlayerContextKey is the key used to store the player id in the request context
	PlayerContextKey ContextKey = iota
)

// PlayerID returns the authenticated player id stored in the request context.
func PlayerID(r *http.Request) (string, bool) {
	playerID, ok := r.Context().Value(PlayerContextKey).(string)
	return playerID, ok
}

func NewAuthMiddleware(provider identity.Provider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearerToken, err := parseBearerToken(r)
			if err != nil {
				log.Error("failed to parse bearer token: %v", err)
				http.Error(w, "failed to parse bearer token", http.StatusUnauthorized)
				return
			}

			playerID, err := provider.VerifyToken(r.Context(), bearerToken)
			if err != nil {
				log.Error("failed to verify token: %v", err)
				http.Error(w, "failed to verify token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), PlayerContextKey, playerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseBearerToken parses the bearer token from the Authorization header
func parseBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	return parts[1], nil
}
