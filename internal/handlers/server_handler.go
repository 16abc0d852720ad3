package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/clouddock-systems/clouddock/internal/middleware"
	"github.com/clouddock-systems/clouddock/internal/models"
	"github.com/clouddock-systems/clouddock/internal/provider"
	"github.com/clouddock-systems/clouddock/internal/repository"
	"github.com/clouddock-systems/clouddock/internal/service"
)

type ServerHandler struct {
	servers *service.ServerService
}

func NewServerHandler(servers *service.ServerService) *ServerHandler {
	return &ServerHandler{servers: servers}
}

func serverID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("sid"), 10, 64)
}

// writeServerError maps the service error taxonomy onto HTTP statuses.
func writeServerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "Project not found")
	case errors.Is(err, service.ErrInvalidAPIKey):
		writeError(w, http.StatusUnauthorized, fmt.Sprintf("API connection error: %v", err))
	case errors.Is(err, provider.ErrServerNotFound):
		writeError(w, http.StatusNotFound, "Server not found")
	default:
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Provider error: %v", err))
	}
}

func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	servers, err := h.servers.ListServers(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServerError(w, err)
		return
	}

	if servers == nil {
		servers = []provider.Server{}
	}
	writeJSON(w, http.StatusOK, servers)
}

func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sid, err := serverID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid server ID")
		return
	}

	server, err := h.servers.GetServer(r.Context(), user, r.PathValue("id"), sid)
	if err != nil {
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, server)
}

func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req models.CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.ServerType == "" || req.Image == "" {
		writeError(w, http.StatusBadRequest, "name, server_type and image are required")
		return
	}

	created, err := h.servers.CreateServer(r.Context(), user, r.PathValue("id"), &req)
	if err != nil {
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sid, err := serverID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid server ID")
		return
	}

	if err := h.servers.DeleteServer(r.Context(), user, r.PathValue("id"), sid); err != nil {
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Server deleted"})
}

func (h *ServerHandler) powerAction(w http.ResponseWriter, r *http.Request, do func(*models.User, string, int64) error, message string) {
	user := middleware.GetUser(r.Context())
	sid, err := serverID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid server ID")
		return
	}

	if err := do(user, r.PathValue("id"), sid); err != nil {
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *ServerHandler) PowerOn(w http.ResponseWriter, r *http.Request) {
	h.powerAction(w, r, func(u *models.User, pid string, sid int64) error {
		return h.servers.PowerOn(r.Context(), u, pid, sid)
	}, "Server powered on")
}

func (h *ServerHandler) PowerOff(w http.ResponseWriter, r *http.Request) {
	h.powerAction(w, r, func(u *models.User, pid string, sid int64) error {
		return h.servers.PowerOff(r.Context(), u, pid, sid)
	}, "Server powered off")
}

func (h *ServerHandler) Reboot(w http.ResponseWriter, r *http.Request) {
	h.powerAction(w, r, func(u *models.User, pid string, sid int64) error {
		return h.servers.Reboot(r.Context(), u, pid, sid)
	}, "Server rebooted")
}

func (h *ServerHandler) ListServerTypes(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	types, err := h.servers.ListServerTypes(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServerError(w, err)
		return
	}

	if types == nil {
		types = []provider.ServerType{}
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *ServerHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	images, err := h.servers.ListImages(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServerError(w, err)
		return
	}

	if images == nil {
		images = []provider.Image{}
	}
	writeJSON(w, http.StatusOK, images)
}
