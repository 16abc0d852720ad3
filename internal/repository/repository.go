package repository

import (
	"context"
	"errors"

	"github.com/clouddock-systems/clouddock/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrProjectNotFound = errors.New("project not found")
)

// Repository is the persistence capability set the core depends on. Project
// reads and deletes are owner-scoped: a project is only visible to the user
// that owns it.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id, ownerID string) (*models.Project, error)
	ListProjects(ctx context.Context, ownerID string, skip, limit int) ([]*models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id, ownerID string) error

	// InsertLogRecord assigns the record's ID (monotonically increasing) and
	// persists it.
	InsertLogRecord(ctx context.Context, rec *models.LogRecord) error
	CountLogRecords(ctx context.Context, projectID string) (int, error)
	// EvictOldestLogRecords deletes the records exceeding keepMax for the
	// given project, oldest first (created_at ascending, id ascending
	// tiebreak), and returns how many were removed. The excess is computed at
	// call time, so repeated calls at a stable count are no-ops.
	EvictOldestLogRecords(ctx context.Context, projectID string, keepMax int) (int64, error)
	// ListLogRecords returns matching records newest first.
	ListLogRecords(ctx context.Context, filter models.LogFilter) ([]*models.LogRecord, error)
	// ListAccountLogRecords returns a user's account-level records (those
	// without a project scope, e.g. logins and password changes) newest first.
	ListAccountLogRecords(ctx context.Context, userID string, skip, limit int) ([]*models.LogRecord, error)
}
