package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/price-tracker/internal/auth"
	apperrors "github.com/price-tracker/internal/errors"
)

type contextKey string

const (
	claimsContextKey    contextKey = "claims"
	requestIDContextKey contextKey = "request_id"
)

func withRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// claimsFrom returns the authenticated user's claims, or nil for anonymous
// requests.
func claimsFrom(ctx context.Context) *auth.Claims {
	if claims, ok := ctx.Value(claimsContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}

// requireAuth rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, apperrors.NewUnauthorizedError("missing authorization token"))
			return
		}

		claims, err := s.tokens.Verify(token)
		if err != nil {
			respondError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePremium gates a subrouter to premium users. Must run after
// requireAuth.
func (s *Server) requirePremium(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil {
			respondError(w, apperrors.NewUnauthorizedError("missing authorization token"))
			return
		}
		if !claims.IsPremium {
			respondError(w, apperrors.NewForbiddenError("premium subscription required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
