package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clouddock-systems/clouddock/internal/models"
)

// InMemoryRepository is the development fallback when no database is
// configured. All log operations preserve the same ordering semantics as the
// Postgres implementation.
type InMemoryRepository struct {
	users       map[string]*models.User
	usersByName map[string]*models.User
	projects    map[string]*models.Project
	logs        []*models.LogRecord
	nextLogID   int64
	mu          sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:       make(map[string]*models.User),
		usersByName: make(map[string]*models.User),
		projects:    make(map[string]*models.Project),
		logs:        make([]*models.LogRecord, 0),
		nextLogID:   1,
	}
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByName[user.Username]; exists {
		return ErrUserExists
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrUserExists
		}
	}

	r.users[user.ID] = user
	r.usersByName[user.Username] = user
	return nil
}

func (r *InMemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.usersByName[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *InMemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *InMemoryRepository) UpdateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		return ErrUserNotFound
	}

	r.users[user.ID] = user
	r.usersByName[user.Username] = user
	return nil
}

func (r *InMemoryRepository) CreateProject(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.projects[project.ID] = project
	return nil
}

func (r *InMemoryRepository) GetProject(ctx context.Context, id, ownerID string) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, exists := r.projects[id]
	if !exists || project.OwnerID != ownerID {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

func (r *InMemoryRepository) ListProjects(ctx context.Context, ownerID string, skip, limit int) ([]*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var projects []*models.Project
	for _, p := range r.projects {
		if p.OwnerID == ownerID {
			projects = append(projects, p)
		}
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})

	return paginate(projects, skip, limit), nil
}

func (r *InMemoryRepository) UpdateProject(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.projects[project.ID]
	if !exists || existing.OwnerID != project.OwnerID {
		return ErrProjectNotFound
	}

	r.projects[project.ID] = project
	return nil
}

func (r *InMemoryRepository) DeleteProject(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, exists := r.projects[id]
	if !exists || project.OwnerID != ownerID {
		return ErrProjectNotFound
	}

	delete(r.projects, id)
	return nil
}

func (r *InMemoryRepository) InsertLogRecord(ctx context.Context, rec *models.LogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = r.nextLogID
	r.nextLogID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	r.logs = append(r.logs, rec)
	return nil
}

func (r *InMemoryRepository) CountLogRecords(ctx context.Context, projectID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rec := range r.logs {
		if rec.ProjectID != nil && *rec.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) EvictOldestLogRecords(ctx context.Context, projectID string, keepMax int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var scoped []*models.LogRecord
	for _, rec := range r.logs {
		if rec.ProjectID != nil && *rec.ProjectID == projectID {
			scoped = append(scoped, rec)
		}
	}

	excess := len(scoped) - keepMax
	if excess <= 0 {
		return 0, nil
	}

	// Oldest first: created_at ascending, id ascending tiebreak.
	sort.Slice(scoped, func(i, j int) bool {
		if !scoped[i].CreatedAt.Equal(scoped[j].CreatedAt) {
			return scoped[i].CreatedAt.Before(scoped[j].CreatedAt)
		}
		return scoped[i].ID < scoped[j].ID
	})

	doomed := make(map[int64]bool, excess)
	for _, rec := range scoped[:excess] {
		doomed[rec.ID] = true
	}

	kept := r.logs[:0]
	for _, rec := range r.logs {
		if !doomed[rec.ID] {
			kept = append(kept, rec)
		}
	}
	r.logs = kept

	return int64(excess), nil
}

func (r *InMemoryRepository) ListLogRecords(ctx context.Context, filter models.LogFilter) ([]*models.LogRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.LogRecord
	for _, rec := range r.logs {
		if rec.ProjectID == nil || *rec.ProjectID != filter.ProjectID {
			continue
		}
		if rec.UserID != filter.UserID {
			continue
		}
		if filter.StartDate != nil && rec.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && rec.CreatedAt.After(*filter.EndDate) {
			continue
		}
		matched = append(matched, rec)
	}

	// Newest first.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	return paginate(matched, filter.Skip, filter.Limit), nil
}

func (r *InMemoryRepository) ListAccountLogRecords(ctx context.Context, userID string, skip, limit int) ([]*models.LogRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.LogRecord
	for _, rec := range r.logs {
		if rec.ProjectID == nil && rec.UserID == userID {
			matched = append(matched, rec)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	return paginate(matched, skip, limit), nil
}

func paginate[T any](items []T, skip, limit int) []T {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}
