package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clouddock-systems/clouddock/internal/handlers"
	"github.com/clouddock-systems/clouddock/internal/middleware"
)

// NewRouter constructs a ServeMux with all API routes registered.
// Every route below /api except /api/auth/token requires a bearer token.
func NewRouter(
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	serverHandler *handlers.ServerHandler,
	authMiddleware *middleware.AuthMiddleware,
) http.Handler {
	mux := http.NewServeMux()
	requireAuth := authMiddleware.RequireAuth

	// Authentication endpoints
	mux.HandleFunc("POST /api/auth/token", authHandler.Login)
	mux.HandleFunc("GET /api/auth/me", requireAuth(authHandler.Me))
	mux.HandleFunc("POST /api/auth/change-password", requireAuth(authHandler.ChangePassword))
	mux.HandleFunc("GET /api/auth/logs", requireAuth(authHandler.ListAccountLogs))

	// Project endpoints
	mux.HandleFunc("GET /api/projects", requireAuth(projectHandler.List))
	mux.HandleFunc("POST /api/projects", requireAuth(projectHandler.Create))
	mux.HandleFunc("GET /api/projects/{id}", requireAuth(projectHandler.Get))
	mux.HandleFunc("PUT /api/projects/{id}", requireAuth(projectHandler.Update))
	mux.HandleFunc("DELETE /api/projects/{id}", requireAuth(projectHandler.Delete))

	// Audit trail review
	mux.HandleFunc("GET /api/projects/{id}/logs", requireAuth(projectHandler.ListLogs))

	// Provider-proxied server endpoints
	mux.HandleFunc("GET /api/projects/{id}/servers", requireAuth(serverHandler.List))
	mux.HandleFunc("POST /api/projects/{id}/servers", requireAuth(serverHandler.Create))
	mux.HandleFunc("GET /api/projects/{id}/servers/{sid}", requireAuth(serverHandler.Get))
	mux.HandleFunc("DELETE /api/projects/{id}/servers/{sid}", requireAuth(serverHandler.Delete))
	mux.HandleFunc("POST /api/projects/{id}/servers/{sid}/power-on", requireAuth(serverHandler.PowerOn))
	mux.HandleFunc("POST /api/projects/{id}/servers/{sid}/power-off", requireAuth(serverHandler.PowerOff))
	mux.HandleFunc("POST /api/projects/{id}/servers/{sid}/reboot", requireAuth(serverHandler.Reboot))
	mux.HandleFunc("GET /api/projects/{id}/server-types", requireAuth(serverHandler.ListServerTypes))
	mux.HandleFunc("GET /api/projects/{id}/images", requireAuth(serverHandler.ListImages))

	// Operational endpoints
	mux.HandleFunc("GET /healthz", authHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	cors := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	})

	return middleware.RequestID(cors(mux))
}
