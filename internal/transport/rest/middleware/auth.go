package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"healthpulse/internal/apperr"
	"healthpulse/internal/model"
)

type contextKey string

const (
	UserIDKey    contextKey = "userId"
	UserRoleKey  contextKey = "userRole"
	RequestIDKey contextKey = "requestId"
)

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*model.UserClaims, error)
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	tokens TokenValidator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireUser validates the bearer token from the Authorization header
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]*apperr.Error{"error": apperr.Unauthorized(message)})
}

// GetUserID extracts the caller's user ID from context
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
