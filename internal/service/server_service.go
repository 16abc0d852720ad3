package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clouddock-systems/clouddock/internal/audit"
	"github.com/clouddock-systems/clouddock/internal/models"
	"github.com/clouddock-systems/clouddock/internal/provider"
	"github.com/clouddock-systems/clouddock/internal/repository"
)

// ServerService proxies server operations to the cloud provider using the
// owning project's API key. Every operation, successful or not, produces
// exactly one audit record scoped to the project.
type ServerService struct {
	repo      repository.Repository
	auditLog  *audit.Logger
	newClient provider.Factory
}

func NewServerService(repo repository.Repository, auditLog *audit.Logger, newClient provider.Factory) *ServerService {
	return &ServerService{
		repo:      repo,
		auditLog:  auditLog,
		newClient: newClient,
	}
}

// clientFor resolves the project and probes the provider connection. A failed
// probe is audited as API_CONNECTION before the error is returned.
func (s *ServerService) clientFor(ctx context.Context, user *models.User, projectID string) (provider.Client, *models.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID, user.ID)
	if err != nil {
		return nil, nil, err
	}

	client := s.newClient(project.APIKey)
	if err := client.Ping(ctx); err != nil {
		if _, aerr := s.auditLog.LogAction(ctx,
			models.ActionAPIConnection,
			fmt.Sprintf("Error connecting to Hetzner API: %v", err),
			models.StatusFailed, &project.ID, user.ID,
		); aerr != nil {
			slog.Error("failed to record connection failure", slog.String("error", aerr.Error()))
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
	}

	return client, project, nil
}

// record writes the operation's audit entry. The provider error, if any,
// takes precedence over an audit append failure in the returned error.
func (s *ServerService) record(ctx context.Context, user *models.User, project *models.Project, action, details string, opErr error) error {
	status := models.StatusSuccess
	if opErr != nil {
		status = models.StatusFailed
	}

	_, aerr := s.auditLog.LogAction(ctx, action, details, status, &project.ID, user.ID)
	if opErr != nil {
		if aerr != nil {
			slog.Error("failed to record operation failure", slog.String("error", aerr.Error()))
		}
		return opErr
	}
	return aerr
}

func (s *ServerService) ListServers(ctx context.Context, user *models.User, projectID string) ([]provider.Server, error) {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return nil, err
	}

	servers, opErr := client.ListServers(ctx)
	details := fmt.Sprintf("Listed %d servers", len(servers))
	if opErr != nil {
		details = fmt.Sprintf("Failed to list servers: %v", opErr)
	}

	if err := s.record(ctx, user, project, models.ActionServerList, details, opErr); err != nil {
		return nil, err
	}
	return servers, nil
}

func (s *ServerService) GetServer(ctx context.Context, user *models.User, projectID string, serverID int64) (*provider.Server, error) {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return nil, err
	}

	server, opErr := client.GetServer(ctx, serverID)
	details := fmt.Sprintf("Retrieved server %d", serverID)
	if opErr != nil {
		details = fmt.Sprintf("Failed to retrieve server %d: %v", serverID, opErr)
	}

	if err := s.record(ctx, user, project, models.ActionServerGet, details, opErr); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *ServerService) CreateServer(ctx context.Context, user *models.User, projectID string, req *models.CreateServerRequest) (*provider.CreatedServer, error) {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return nil, err
	}

	created, opErr := client.CreateServer(ctx, provider.CreateServerOpts{
		Name:       req.Name,
		ServerType: req.ServerType,
		Image:      req.Image,
		Location:   req.Location,
		SSHKeys:    req.SSHKeys,
	})
	details := fmt.Sprintf("Server '%s' created successfully", req.Name)
	if opErr != nil {
		details = fmt.Sprintf("Failed to create server '%s': %v", req.Name, opErr)
	}

	if err := s.record(ctx, user, project, models.ActionServerCreate, details, opErr); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *ServerService) DeleteServer(ctx context.Context, user *models.User, projectID string, serverID int64) error {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return err
	}

	opErr := client.DeleteServer(ctx, serverID)
	details := fmt.Sprintf("Server %d deleted", serverID)
	if opErr != nil {
		details = fmt.Sprintf("Failed to delete server %d: %v", serverID, opErr)
	}

	return s.record(ctx, user, project, models.ActionServerDelete, details, opErr)
}

func (s *ServerService) PowerOn(ctx context.Context, user *models.User, projectID string, serverID int64) error {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return err
	}

	opErr := client.PowerOn(ctx, serverID)
	details := fmt.Sprintf("Server %d powered on", serverID)
	if opErr != nil {
		details = fmt.Sprintf("Failed to power on server %d: %v", serverID, opErr)
	}

	return s.record(ctx, user, project, models.ActionServerPowerOn, details, opErr)
}

func (s *ServerService) PowerOff(ctx context.Context, user *models.User, projectID string, serverID int64) error {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return err
	}

	opErr := client.PowerOff(ctx, serverID)
	details := fmt.Sprintf("Server %d powered off", serverID)
	if opErr != nil {
		details = fmt.Sprintf("Failed to power off server %d: %v", serverID, opErr)
	}

	return s.record(ctx, user, project, models.ActionServerPowerOff, details, opErr)
}

func (s *ServerService) Reboot(ctx context.Context, user *models.User, projectID string, serverID int64) error {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return err
	}

	opErr := client.Reboot(ctx, serverID)
	details := fmt.Sprintf("Server %d rebooted", serverID)
	if opErr != nil {
		details = fmt.Sprintf("Failed to reboot server %d: %v", serverID, opErr)
	}

	return s.record(ctx, user, project, models.ActionServerReboot, details, opErr)
}

func (s *ServerService) ListServerTypes(ctx context.Context, user *models.User, projectID string) ([]provider.ServerType, error) {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return nil, err
	}

	types, opErr := client.ListServerTypes(ctx)
	details := fmt.Sprintf("Listed %d server types", len(types))
	if opErr != nil {
		details = fmt.Sprintf("Failed to list server types: %v", opErr)
	}

	if err := s.record(ctx, user, project, models.ActionServerTypes, details, opErr); err != nil {
		return nil, err
	}
	return types, nil
}

func (s *ServerService) ListImages(ctx context.Context, user *models.User, projectID string) ([]provider.Image, error) {
	client, project, err := s.clientFor(ctx, user, projectID)
	if err != nil {
		return nil, err
	}

	images, opErr := client.ListImages(ctx)
	details := fmt.Sprintf("Listed %d images", len(images))
	if opErr != nil {
		details = fmt.Sprintf("Failed to list images: %v", opErr)
	}

	if err := s.record(ctx, user, project, models.ActionImagesList, details, opErr); err != nil {
		return nil, err
	}
	return images, nil
}
