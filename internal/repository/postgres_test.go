package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clouddock-systems/clouddock/internal/models"
)

// setupTestDatabase creates a PostgreSQL testcontainer and runs migrations
func setupTestDatabase(t *testing.T) (*PostgresRepository, func()) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("clouddock_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo, err := NewPostgresRepository(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create repository: %v", err)
	}

	cleanup := func() {
		repo.pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return repo, cleanup
}

// runMigrations runs SQL migrations from the migrations directory
func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationPath := filepath.Join("..", "..", "migrations", "001_init.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	return nil
}

func testUser(id, username, email string) *models.User {
	return &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "hashed_password",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

func testProject(id, name, ownerID string) *models.Project {
	return &models.Project{
		ID:        id,
		Name:      name,
		APIKey:    "api-key-" + id,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
}

// ============================================================================
// User Tests
// ============================================================================

func TestPostgresCreateUser(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()

	tests := []struct {
		name        string
		user        *models.User
		expectError bool
		errorType   error
	}{
		{
			name:        "successful user creation",
			user:        testUser("11111111-1111-1111-1111-111111111111", "testuser", "test@example.com"),
			expectError: false,
		},
		{
			name:        "duplicate username",
			user:        testUser("22222222-2222-2222-2222-222222222222", "testuser", "different@example.com"),
			expectError: true,
			errorType:   ErrUserExists,
		},
		{
			name:        "duplicate email",
			user:        testUser("33333333-3333-3333-3333-333333333333", "differentuser", "test@example.com"),
			expectError: true,
			errorType:   ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			err := repo.CreateUser(ctx, tt.user)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if tt.errorType != nil && !errors.Is(err, tt.errorType) {
					t.Errorf("Expected error %v, got %v", tt.errorType, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			retrieved, err := repo.GetUserByID(ctx, tt.user.ID)
			if err != nil {
				t.Fatalf("Failed to retrieve created user: %v", err)
			}
			if retrieved.Username != tt.user.Username {
				t.Errorf("Expected username %s, got %s", tt.user.Username, retrieved.Username)
			}
			if retrieved.Email != tt.user.Email {
				t.Errorf("Expected email %s, got %s", tt.user.Email, retrieved.Email)
			}
		})
	}
}

func TestPostgresGetUserByUsername(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	user := testUser("44444444-4444-4444-4444-444444444444", "gettest", "gettest@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	retrieved, err := repo.GetUserByUsername(ctx, "gettest")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if retrieved.ID != user.ID {
		t.Errorf("Expected ID %s, got %s", user.ID, retrieved.ID)
	}

	_, err = repo.GetUserByUsername(ctx, "nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestPostgresUpdateUser(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	user := testUser("55555555-5555-5555-5555-555555555555", "updatetest", "updatetest@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	user.PasswordHash = "new_hash"
	user.IsActive = false
	if err := repo.UpdateUser(ctx, user); err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve updated user: %v", err)
	}
	if retrieved.PasswordHash != "new_hash" {
		t.Errorf("Expected updated password hash, got %s", retrieved.PasswordHash)
	}
	if retrieved.IsActive {
		t.Error("Expected user to be inactive")
	}

	ghost := testUser("66666666-6666-6666-6666-666666666666", "ghost", "ghost@example.com")
	if err := repo.UpdateUser(ctx, ghost); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound for unknown user, got %v", err)
	}
}

// ============================================================================
// Project Tests
// ============================================================================

func TestPostgresProjectOwnerScoping(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	alice := testUser("77777777-7777-7777-7777-777777777777", "alice", "alice@example.com")
	bob := testUser("88888888-8888-8888-8888-888888888888", "bob", "bob@example.com")
	if err := repo.CreateUser(ctx, alice); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if err := repo.CreateUser(ctx, bob); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	project := testProject("99999999-9999-9999-9999-999999999999", "production", alice.ID)
	if err := repo.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	if _, err := repo.GetProject(ctx, project.ID, alice.ID); err != nil {
		t.Fatalf("Owner failed to get project: %v", err)
	}
	if _, err := repo.GetProject(ctx, project.ID, bob.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound for non-owner, got %v", err)
	}
	if err := repo.DeleteProject(ctx, project.ID, bob.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound for non-owner delete, got %v", err)
	}

	projects, err := repo.ListProjects(ctx, alice.ID, 0, 100)
	if err != nil {
		t.Fatalf("Failed to list projects: %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("Expected 1 project for alice, got %d", len(projects))
	}

	projects, err = repo.ListProjects(ctx, bob.ID, 0, 100)
	if err != nil {
		t.Fatalf("Failed to list projects: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("Expected 0 projects for bob, got %d", len(projects))
	}
}

func TestPostgresUpdateProject(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	owner := testUser("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", "owner", "owner@example.com")
	if err := repo.CreateUser(ctx, owner); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	project := testProject("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", "staging", owner.ID)
	if err := repo.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	desc := "staging environment"
	project.APIKey = "rotated-key"
	project.Description = &desc
	if err := repo.UpdateProject(ctx, project); err != nil {
		t.Fatalf("Failed to update project: %v", err)
	}

	retrieved, err := repo.GetProject(ctx, project.ID, owner.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve project: %v", err)
	}
	if retrieved.APIKey != "rotated-key" {
		t.Errorf("Expected rotated-key, got %s", retrieved.APIKey)
	}
	if retrieved.Description == nil || *retrieved.Description != desc {
		t.Errorf("Expected description %q, got %v", desc, retrieved.Description)
	}
}

// ============================================================================
// Log Tests
// ============================================================================

func TestPostgresInsertLogRecordAssignsIDs(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	user := testUser("cccccccc-cccc-cccc-cccc-cccccccccccc", "loguser", "loguser@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	var lastID int64
	for i := 0; i < 3; i++ {
		rec := &models.LogRecord{
			Action:  models.ActionLogin,
			Details: "User logged in",
			Status:  models.StatusSuccess,
			UserID:  user.ID,
		}
		if err := repo.InsertLogRecord(ctx, rec); err != nil {
			t.Fatalf("Failed to insert log record: %v", err)
		}
		if rec.ID <= lastID {
			t.Errorf("Expected monotonically increasing IDs, got %d after %d", rec.ID, lastID)
		}
		lastID = rec.ID
	}
}

func TestPostgresEvictOldestLogRecords(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	user := testUser("dddddddd-dddd-dddd-dddd-dddddddddddd", "evictuser", "evict@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	project := testProject("eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee", "evictproj", user.ID)
	if err := repo.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	// Identical timestamps force the id tiebreak.
	sameInstant := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &models.LogRecord{
			Action:    models.ActionServerList,
			Details:   fmt.Sprintf("record %d", i),
			Status:    models.StatusSuccess,
			ProjectID: &project.ID,
			UserID:    user.ID,
			CreatedAt: sameInstant,
		}
		if err := repo.InsertLogRecord(ctx, rec); err != nil {
			t.Fatalf("Failed to insert log record: %v", err)
		}
	}

	evicted, err := repo.EvictOldestLogRecords(ctx, project.ID, 3)
	if err != nil {
		t.Fatalf("Failed to evict: %v", err)
	}
	if evicted != 2 {
		t.Errorf("Expected 2 evicted, got %d", evicted)
	}

	count, err := repo.CountLogRecords(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 remaining, got %d", count)
	}

	records, err := repo.ListLogRecords(ctx, models.LogFilter{ProjectID: project.ID, UserID: user.ID})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	// The two lowest ids were removed; newest first leaves 4, 3, 2.
	if records[0].Details != "record 4" || records[2].Details != "record 2" {
		t.Errorf("Unexpected survivors: %s .. %s", records[0].Details, records[2].Details)
	}

	// Re-running at a stable count is a no-op.
	evicted, err = repo.EvictOldestLogRecords(ctx, project.ID, 3)
	if err != nil {
		t.Fatalf("Failed to re-evict: %v", err)
	}
	if evicted != 0 {
		t.Errorf("Expected 0 evicted on second pass, got %d", evicted)
	}
}

func TestPostgresListAccountLogRecords(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	user := testUser("ffffffff-ffff-ffff-ffff-ffffffffffff", "acctuser", "acct@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	project := testProject("00000001-0001-0001-0001-000000000001", "acctproj", user.ID)
	if err := repo.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	account := &models.LogRecord{
		Action: models.ActionLogin, Details: "User logged in",
		Status: models.StatusSuccess, UserID: user.ID,
	}
	scoped := &models.LogRecord{
		Action: models.ActionServerList, Details: "Listed 0 servers",
		Status: models.StatusSuccess, ProjectID: &project.ID, UserID: user.ID,
	}
	if err := repo.InsertLogRecord(ctx, account); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := repo.InsertLogRecord(ctx, scoped); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	records, err := repo.ListAccountLogRecords(ctx, user.ID, 0, 100)
	if err != nil {
		t.Fatalf("Failed to list account records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 account-level record, got %d", len(records))
	}
	if records[0].Action != models.ActionLogin {
		t.Errorf("Expected LOGIN record, got %s", records[0].Action)
	}
	if records[0].ProjectID != nil {
		t.Error("Expected nil project ID on account-level record")
	}
}

func TestPostgresDeleteProjectCascadesLogs(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	user := testUser("00000002-0002-0002-0002-000000000002", "cascade", "cascade@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	project := testProject("00000003-0003-0003-0003-000000000003", "doomed", user.ID)
	if err := repo.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	rec := &models.LogRecord{
		Action: models.ActionServerCreate, Details: "Server 'web-1' created successfully",
		Status: models.StatusSuccess, ProjectID: &project.ID, UserID: user.ID,
	}
	if err := repo.InsertLogRecord(ctx, rec); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	if err := repo.DeleteProject(ctx, project.ID, user.ID); err != nil {
		t.Fatalf("Failed to delete project: %v", err)
	}

	count, err := repo.CountLogRecords(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected project logs to cascade on delete, found %d", count)
	}
}

func TestPostgresClose(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)

	repo.Close()

	cleanup()
}
