package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDFromContext returns the authenticated user's ID placed there by the
// access-token middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// ContextWithUserID is exported for handler tests.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequireAccessToken authenticates the bearer token and injects the user ID
// into the request context.
func (s *Service) RequireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			unauthorized(w, "Authorization header is required")
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			unauthorized(w, "Invalid token format")
			return
		}

		userID, err := s.tokens.ValidateAccessToken(tokenString)
		if err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}
		if _, err := s.store.FindByID(r.Context(), userID); err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
	})
}

// RequireRefreshToken authenticates the refresh-token cookie and injects the
// user ID; the token itself is re-validated against the stored hash token.
func (s *Service) RequireRefreshToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshCookieName)
		if err != nil {
			unauthorized(w, "Refresh token is required")
			return
		}

		userID, err := s.tokens.UserIDFromRefreshToken(cookie.Value)
		if err != nil {
			unauthorized(w, "Invalid or expired refresh token")
			return
		}
		user, err := s.store.FindByID(r.Context(), userID)
		if err != nil {
			unauthorized(w, "Invalid or expired refresh token")
			return
		}
		if err := s.tokens.ValidateRefreshToken(cookie.Value, user.HashToken); err != nil {
			unauthorized(w, "Invalid or expired refresh token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
