package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clouddock-systems/clouddock/internal/audit"
	"github.com/clouddock-systems/clouddock/internal/config"
	"github.com/clouddock-systems/clouddock/internal/metrics"
	"github.com/clouddock-systems/clouddock/internal/models"
	"github.com/clouddock-systems/clouddock/internal/repository"
	"github.com/clouddock-systems/clouddock/pkg/tokens"
)

var (
	// ErrInvalidCredentials is returned for every authentication failure so
	// a caller cannot distinguish an unknown username from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	repo     repository.Repository
	issuer   *tokens.Issuer
	auditLog *audit.Logger
	cfg      *config.AuthConfig
}

func NewAuthService(repo repository.Repository, auditLog *audit.Logger, cfg *config.AuthConfig) *AuthService {
	return &AuthService{
		repo:     repo,
		issuer:   tokens.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		auditLog: auditLog,
		cfg:      cfg,
	}
}

// Login verifies the credentials and mints a bearer token. Failed attempts
// against a known username are audited; the returned error never reveals
// which check failed.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.Logins.WithLabelValues(models.StatusFailed).Inc()
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !user.IsActive {
		s.auditFailedLogin(ctx, user, "account disabled")
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.auditFailedLogin(ctx, user, fmt.Sprintf("Failed login attempt for user: %s", username))
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Generate(user.Username)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	_, err = s.auditLog.LogAction(ctx,
		models.ActionLogin,
		fmt.Sprintf("User %s logged in successfully", user.Username),
		models.StatusSuccess, nil, user.ID,
	)
	if err != nil {
		// A login without its audit record would break the one-record-per-
		// action guarantee on the primary path.
		return "", nil, err
	}
	metrics.Logins.WithLabelValues(models.StatusSuccess).Inc()

	return token, user, nil
}

func (s *AuthService) auditFailedLogin(ctx context.Context, user *models.User, details string) {
	metrics.Logins.WithLabelValues(models.StatusFailed).Inc()
	if _, err := s.auditLog.LogAction(ctx,
		models.ActionLogin, details, models.StatusFailed, nil, user.ID,
	); err != nil {
		slog.Error("failed to record login failure", slog.String("error", err.Error()))
	}
}

// Authorize resolves a bearer token to an active user. The token layer only
// proves the signature and expiry; the subject must still exist here.
func (s *AuthService) Authorize(ctx context.Context, token string) (*models.User, error) {
	subject, err := s.issuer.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	return user, nil
}

// ChangePassword re-hashes and persists the user's password after verifying
// the old one. Previously issued tokens stay valid until natural expiry.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		if _, aerr := s.auditLog.LogAction(ctx,
			models.ActionChangePassword,
			"Failed attempt to change password (incorrect old password)",
			models.StatusFailed, nil, user.ID,
		); aerr != nil {
			slog.Error("failed to record password change failure", slog.String("error", aerr.Error()))
		}
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hashed)
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	_, err = s.auditLog.LogAction(ctx,
		models.ActionChangePassword,
		"Password changed successfully",
		models.StatusSuccess, nil, user.ID,
	)
	return err
}

// CreateUser provisions a new identity.
func (s *AuthService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	user := &models.User{
		ID:           userID.String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.auditLog.LogAction(ctx,
		models.ActionUserCreate,
		fmt.Sprintf("User %s created", username),
		models.StatusSuccess, nil, user.ID,
	); err != nil {
		slog.Error("failed to record user creation", slog.String("error", err.Error()))
	}

	return user, nil
}

// ListAccountLogs returns the user's account-level audit records (logins,
// password changes) newest first.
func (s *AuthService) ListAccountLogs(ctx context.Context, user *models.User, skip, limit int) ([]*models.LogRecord, error) {
	return s.repo.ListAccountLogRecords(ctx, user.ID, skip, limit)
}

// EnsureAdminUser creates the bootstrap admin identity if it does not exist.
// Safe to run on every startup.
func (s *AuthService) EnsureAdminUser(ctx context.Context) error {
	_, err := s.repo.GetUserByUsername(ctx, s.cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	user, err := s.CreateUser(ctx,
		s.cfg.AdminUsername,
		fmt.Sprintf("%s@example.com", s.cfg.AdminUsername),
		s.cfg.AdminPassword,
	)
	if err != nil {
		// Lost the race against a concurrent startup; the admin exists.
		if errors.Is(err, repository.ErrUserExists) {
			return nil
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("admin user created", slog.String("username", user.Username))
	return nil
}
