package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clouddock-systems/clouddock/internal/models"
)

const UserKey = contextKey("user")

// Authorizer resolves a bearer token to the user it was issued to.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*models.User, error)
}

type AuthMiddleware struct {
	authorizer Authorizer
}

func NewAuthMiddleware(authorizer Authorizer) *AuthMiddleware {
	return &AuthMiddleware{authorizer: authorizer}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		user, err := m.authorizer.Authorize(r.Context(), parts[1])
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUser extracts the authenticated user from the context.
// Returns nil if the request did not pass RequireAuth.
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}
