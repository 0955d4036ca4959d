package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/skateduel/internal/api/apierr"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// TokenValidator checks a bearer token
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Auth creates middleware that requires a valid bearer token
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the token from "Authorization: Bearer <token>"
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetClaims returns the token claims from the request context
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// RiderID returns the authenticated rider, or "" outside Auth
func RiderID(ctx context.Context) model.RiderID {
	if claims := GetClaims(ctx); claims != nil {
		return claims.RiderID()
	}
	return ""
}
