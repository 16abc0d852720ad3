package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/clouddock-systems/clouddock/internal/middleware"
	"github.com/clouddock-systems/clouddock/internal/models"
	"github.com/clouddock-systems/clouddock/internal/repository"
	"github.com/clouddock-systems/clouddock/internal/service"
)

type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	projects, err := h.projects.ListProjects(r.Context(), user,
		queryInt(r, "skip", 0), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	if projects == nil {
		projects = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "name and api_key are required")
		return
	}

	project, err := h.projects.CreateProject(r.Context(), user, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAPIKey) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid API key: %v", err))
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	projectID := r.PathValue("id")

	project, err := h.projects.GetProject(r.Context(), user, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get project")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	projectID := r.PathValue("id")

	var req models.UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	project, err := h.projects.UpdateProject(r.Context(), user, projectID, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProjectNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
		case errors.Is(err, service.ErrInvalidAPIKey):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid API key: %v", err))
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update project")
		}
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	projectID := r.PathValue("id")

	if err := h.projects.DeleteProject(r.Context(), user, projectID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}

func (h *ProjectHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	projectID := r.PathValue("id")

	records, err := h.projects.ListLogs(r.Context(), user, projectID,
		queryInt(r, "skip", 0), queryInt(r, "limit", 100),
		queryTime(r, "start_date"), queryTime(r, "end_date"))
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to list logs")
		return
	}

	if records == nil {
		records = []*models.LogRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
