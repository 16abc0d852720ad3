package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clouddock-systems/clouddock/internal/models"
)

type stubAuthorizer struct {
	user *models.User
	err  error

	gotToken string
}

func (s *stubAuthorizer) Authorize(ctx context.Context, token string) (*models.User, error) {
	s.gotToken = token
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func TestRequireAuth(t *testing.T) {
	alice := &models.User{ID: "user-1", Username: "alice", IsActive: true}

	tests := []struct {
		name       string
		header     string
		authorizer *stubAuthorizer
		wantStatus int
		wantUser   bool
	}{
		{
			name:       "valid token",
			header:     "Bearer good-token",
			authorizer: &stubAuthorizer{user: alice},
			wantStatus: http.StatusOK,
			wantUser:   true,
		},
		{
			name:       "missing header",
			header:     "",
			authorizer: &stubAuthorizer{user: alice},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer scheme",
			header:     "Basic dXNlcjpwYXNz",
			authorizer: &stubAuthorizer{user: alice},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "rejected token",
			header:     "Bearer bad-token",
			authorizer: &stubAuthorizer{err: errors.New("invalid token")},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser *models.User
			handler := NewAuthMiddleware(tt.authorizer).RequireAuth(func(w http.ResponseWriter, r *http.Request) {
				gotUser = GetUser(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantUser {
				require.NotNil(t, gotUser)
				assert.Equal(t, "alice", gotUser.Username)
				assert.Equal(t, "good-token", tt.authorizer.gotToken)
			} else {
				assert.Nil(t, gotUser)
			}
		})
	}
}

func TestGetUserMissing(t *testing.T) {
	assert.Nil(t, GetUser(context.Background()))
}
