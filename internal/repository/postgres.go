package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clouddock-systems/clouddock/internal/models"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO users (id, username, email, password_hash, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.IsActive, user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, username, email, password_hash, is_active, created_at
		FROM users
		WHERE username = $1
	`

	var user models.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, username, email, password_hash, is_active, created_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, is_active = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.IsActive,
	)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepository) CreateProject(ctx context.Context, project *models.Project) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO projects (id, name, api_key, description, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		project.ID, project.Name, project.APIKey, project.Description,
		project.OwnerID, project.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetProject(ctx context.Context, id, ownerID string) (*models.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, name, api_key, description, owner_id, created_at
		FROM projects
		WHERE id = $1 AND owner_id = $2
	`

	var project models.Project
	err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&project.ID, &project.Name, &project.APIKey, &project.Description,
		&project.OwnerID, &project.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

func (r *PostgresRepository) ListProjects(ctx context.Context, ownerID string, skip, limit int) ([]*models.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	query := `
		SELECT id, name, api_key, description, owner_id, created_at
		FROM projects
		WHERE owner_id = $1
		ORDER BY created_at
		OFFSET $2 LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, ownerID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ID, &project.Name, &project.APIKey, &project.Description,
			&project.OwnerID, &project.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

func (r *PostgresRepository) UpdateProject(ctx context.Context, project *models.Project) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE projects
		SET api_key = $3, description = $4
		WHERE id = $1 AND owner_id = $2
	`

	result, err := r.pool.Exec(ctx, query,
		project.ID, project.OwnerID, project.APIKey, project.Description,
	)

	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteProject(ctx context.Context, id, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `DELETE FROM projects WHERE id = $1 AND owner_id = $2`

	result, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

func (r *PostgresRepository) InsertLogRecord(ctx context.Context, rec *models.LogRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO logs (action, details, status, project_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		rec.Action, rec.Details, rec.Status, rec.ProjectID, rec.UserID, rec.CreatedAt,
	).Scan(&rec.ID)

	if err != nil {
		return fmt.Errorf("failed to insert log record: %w", err)
	}

	return nil
}

func (r *PostgresRepository) CountLogRecords(ctx context.Context, projectID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM logs WHERE project_id = $1`, projectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count log records: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) EvictOldestLogRecords(ctx context.Context, projectID string, keepMax int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := r.CountLogRecords(ctx, projectID)
	if err != nil {
		return 0, err
	}

	excess := count - keepMax
	if excess <= 0 {
		return 0, nil
	}

	// The subquery re-resolves "oldest N" at deletion time, so a concurrent
	// eviction never removes records inserted after our count snapshot.
	query := `
		DELETE FROM logs
		WHERE id = ANY(
			SELECT id FROM logs
			WHERE project_id = $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2
		)
	`

	result, err := r.pool.Exec(ctx, query, projectID, excess)
	if err != nil {
		return 0, fmt.Errorf("failed to evict log records: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *PostgresRepository) ListLogRecords(ctx context.Context, filter models.LogFilter) ([]*models.LogRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	query := `
		SELECT id, action, details, status, project_id, user_id, created_at
		FROM logs
		WHERE project_id = $1 AND user_id = $2
	`
	args := []any{filter.ProjectID, filter.UserID}

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	args = append(args, skip, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list log records: %w", err)
	}
	defer rows.Close()

	var records []*models.LogRecord
	for rows.Next() {
		var rec models.LogRecord
		err := rows.Scan(
			&rec.ID, &rec.Action, &rec.Details, &rec.Status,
			&rec.ProjectID, &rec.UserID, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log records: %w", err)
	}

	return records, nil
}

func (r *PostgresRepository) ListAccountLogRecords(ctx context.Context, userID string, skip, limit int) ([]*models.LogRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	query := `
		SELECT id, action, details, status, project_id, user_id, created_at
		FROM logs
		WHERE project_id IS NULL AND user_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list account log records: %w", err)
	}
	defer rows.Close()

	var records []*models.LogRecord
	for rows.Next() {
		var rec models.LogRecord
		err := rows.Scan(
			&rec.ID, &rec.Action, &rec.Details, &rec.Status,
			&rec.ProjectID, &rec.UserID, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log records: %w", err)
	}

	return records, nil
}
