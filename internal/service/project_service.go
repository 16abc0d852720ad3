package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clouddock-systems/clouddock/internal/audit"
	"github.com/clouddock-systems/clouddock/internal/models"
	"github.com/clouddock-systems/clouddock/internal/provider"
	"github.com/clouddock-systems/clouddock/internal/repository"
)

// ErrInvalidAPIKey means the provider rejected the project's credential.
var ErrInvalidAPIKey = errors.New("invalid API key")

type ProjectService struct {
	repo      repository.Repository
	auditLog  *audit.Logger
	newClient provider.Factory
}

func NewProjectService(repo repository.Repository, auditLog *audit.Logger, newClient provider.Factory) *ProjectService {
	return &ProjectService{
		repo:      repo,
		auditLog:  auditLog,
		newClient: newClient,
	}
}

// CreateProject probes the provider with the supplied API key before
// persisting anything; a bad key is audited and nothing is stored.
func (s *ProjectService) CreateProject(ctx context.Context, user *models.User, req *models.CreateProjectRequest) (*models.Project, error) {
	if err := s.newClient(req.APIKey).Ping(ctx); err != nil {
		if _, aerr := s.auditLog.LogAction(ctx,
			models.ActionProjectCreate,
			fmt.Sprintf("Failed to create project '%s': Invalid API key", req.Name),
			models.StatusFailed, nil, user.ID,
		); aerr != nil {
			return nil, aerr
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
	}

	projectID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate project ID: %w", err)
	}

	project := &models.Project{
		ID:          projectID.String(),
		Name:        req.Name,
		APIKey:      req.APIKey,
		Description: req.Description,
		OwnerID:     user.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	if _, err := s.auditLog.LogAction(ctx,
		models.ActionProjectCreate,
		fmt.Sprintf("Project '%s' created successfully", project.Name),
		models.StatusSuccess, &project.ID, user.ID,
	); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *ProjectService) GetProject(ctx context.Context, user *models.User, projectID string) (*models.Project, error) {
	return s.repo.GetProject(ctx, projectID, user.ID)
}

func (s *ProjectService) ListProjects(ctx context.Context, user *models.User, skip, limit int) ([]*models.Project, error) {
	return s.repo.ListProjects(ctx, user.ID, skip, limit)
}

// UpdateProject replaces the API key and/or description. A replacement key is
// probed against the provider first.
func (s *ProjectService) UpdateProject(ctx context.Context, user *models.User, projectID string, req *models.UpdateProjectRequest) (*models.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID, user.ID)
	if err != nil {
		return nil, err
	}

	if req.APIKey != nil {
		if err := s.newClient(*req.APIKey).Ping(ctx); err != nil {
			if _, aerr := s.auditLog.LogAction(ctx,
				models.ActionProjectUpdate,
				fmt.Sprintf("Failed to update project '%s': Invalid API key", project.Name),
				models.StatusFailed, &project.ID, user.ID,
			); aerr != nil {
				return nil, aerr
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
		}
		project.APIKey = *req.APIKey
	}
	if req.Description != nil {
		project.Description = req.Description
	}

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, err
	}

	if _, err := s.auditLog.LogAction(ctx,
		models.ActionProjectUpdate,
		fmt.Sprintf("Project '%s' updated successfully", project.Name),
		models.StatusSuccess, &project.ID, user.ID,
	); err != nil {
		return nil, err
	}

	return project, nil
}

// DeleteProject removes the project and, through the store's cascade, its
// audit trail. The deletion itself is recorded as an account-level event.
func (s *ProjectService) DeleteProject(ctx context.Context, user *models.User, projectID string) error {
	project, err := s.repo.GetProject(ctx, projectID, user.ID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteProject(ctx, projectID, user.ID); err != nil {
		return err
	}

	_, err = s.auditLog.LogAction(ctx,
		models.ActionProjectDelete,
		fmt.Sprintf("Project '%s' deleted", project.Name),
		models.StatusSuccess, nil, user.ID,
	)
	return err
}

// ListLogs returns the project's audit trail, newest first. Read-only; not
// itself an audited action.
func (s *ProjectService) ListLogs(ctx context.Context, user *models.User, projectID string, skip, limit int, startDate, endDate *time.Time) ([]*models.LogRecord, error) {
	if _, err := s.repo.GetProject(ctx, projectID, user.ID); err != nil {
		return nil, err
	}

	return s.repo.ListLogRecords(ctx, models.LogFilter{
		ProjectID: projectID,
		UserID:    user.ID,
		Skip:      skip,
		Limit:     limit,
		StartDate: startDate,
		EndDate:   endDate,
	})
}
