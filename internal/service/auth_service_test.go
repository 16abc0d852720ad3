package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clouddock-systems/clouddock/internal/audit"
	"github.com/clouddock-systems/clouddock/internal/config"
	"github.com/clouddock-systems/clouddock/internal/models"
	"github.com/clouddock-systems/clouddock/internal/repository"
)

func newAuthFixture(t *testing.T) (*AuthService, *repository.InMemoryRepository) {
	t.Helper()
	repo := repository.NewInMemoryRepository()
	auditLog := audit.NewLogger(repo, 1000)
	cfg := &config.AuthConfig{
		JWTSecret:     "test-secret-key-that-is-long-enough",
		TokenTTL:      30 * time.Minute,
		AdminUsername: "admin",
		AdminPassword: "changeme",
	}
	return NewAuthService(repo, auditLog, cfg), repo
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))

	// Same password, different salt.
	other, err := svc.CreateUser(ctx, "bob", "bob@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, user.PasswordHash, other.PasswordHash)
}

func TestLoginSuccess(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, created.ID, user.ID)

	// Exactly one account-level login record was appended.
	logs, err := filterByAction(ctx, repo, created.ID, models.ActionLogin)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusSuccess, logs[0].Status)
	assert.Nil(t, logs[0].ProjectID)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown username", "mallory", "s3cret"},
		{"wrong password", "alice", "wrong"},
		{"empty password", "alice", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, user, err := svc.Login(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Empty(t, token)
			assert.Nil(t, user)
		})
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, repo.UpdateUser(ctx, user))

	_, _, err = svc.Login(ctx, "alice", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	logs, err := filterByAction(ctx, repo, user.ID, models.ActionLogin)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusFailed, logs[0].Status)
}

func TestFailedLoginIsAudited(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	logs, err := filterByAction(ctx, repo, user.ID, models.ActionLogin)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusFailed, logs[0].Status)
	assert.Nil(t, logs[0].ProjectID)
	assert.Contains(t, logs[0].Details, "alice")
}

func TestAuthorize(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	user, err := svc.Authorize(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Authorize(ctx, "not-a-token")
		assert.Error(t, err)
	})

	t.Run("disabled user", func(t *testing.T) {
		created.IsActive = false
		require.NoError(t, repo.UpdateUser(ctx, created))
		defer func() {
			created.IsActive = true
			require.NoError(t, repo.UpdateUser(ctx, created))
		}()

		_, err := svc.Authorize(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestChangePassword(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, user, "s3cret", "n3wpass"))

	// Old password is dead, new one works.
	_, _, err = svc.Login(ctx, "alice", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "alice", "n3wpass")
	assert.NoError(t, err)

	// Tokens are stateless: the pre-change token survives until expiry.
	_, err = svc.Authorize(ctx, token)
	assert.NoError(t, err)

	logs, err := filterByAction(ctx, repo, user.ID, models.ActionChangePassword)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusSuccess, logs[0].Status)
}

func TestChangePasswordWrongOld(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user, "wrong", "n3wpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Password unchanged, failure audited.
	_, _, err = svc.Login(ctx, "alice", "s3cret")
	assert.NoError(t, err)

	logs, err := filterByAction(ctx, repo, user.ID, models.ActionChangePassword)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusFailed, logs[0].Status)
}

func TestEnsureAdminUserIdempotent(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdminUser(ctx))

	admin, err := repo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.True(t, admin.IsActive)

	// A second run must not error or touch the existing account.
	require.NoError(t, svc.ChangePassword(ctx, admin, "changeme", "rotated"))
	require.NoError(t, svc.EnsureAdminUser(ctx))

	_, _, err = svc.Login(ctx, "admin", "rotated")
	assert.NoError(t, err)
}

// filterByAction pulls a user's account-level records for one action.
func filterByAction(ctx context.Context, repo *repository.InMemoryRepository, userID, action string) ([]*models.LogRecord, error) {
	all, err := repo.ListAccountLogRecords(ctx, userID, 0, 1000)
	if err != nil {
		return nil, err
	}
	var matched []*models.LogRecord
	for _, rec := range all {
		if rec.Action == action {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}
