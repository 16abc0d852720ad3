package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/clouddock-systems/clouddock/internal/audit"
	"github.com/clouddock-systems/clouddock/internal/config"
	"github.com/clouddock-systems/clouddock/internal/handlers"
	"github.com/clouddock-systems/clouddock/internal/logging"
	"github.com/clouddock-systems/clouddock/internal/middleware"
	"github.com/clouddock-systems/clouddock/internal/provider"
	"github.com/clouddock-systems/clouddock/internal/repository"
	"github.com/clouddock-systems/clouddock/internal/server"
	"github.com/clouddock-systems/clouddock/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the CloudDock API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runServer(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer(cfg *config.Config) error {
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("clouddock"))
	logging.SetDefault(logger)

	slog.Info("Starting CloudDock",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.Int("audit_cap", cfg.Audit.MaxEntriesPerProject),
	)

	repo, cleanup, err := buildRepository(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	auditLogger := audit.NewLogger(repo, cfg.Audit.MaxEntriesPerProject)
	authService := service.NewAuthService(repo, auditLogger, &cfg.Auth)
	projectService := service.NewProjectService(repo, auditLogger, provider.NewHCloudClient)
	serverService := service.NewServerService(repo, auditLogger, provider.NewHCloudClient)

	// Bootstrap admin identity; idempotent on every startup.
	if err := authService.EnsureAdminUser(context.Background()); err != nil {
		return fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	router := server.NewRouter(
		handlers.NewAuthHandler(authService),
		handlers.NewProjectHandler(projectService),
		handlers.NewServerHandler(serverService),
		middleware.NewAuthMiddleware(authService),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("CloudDock listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

func buildRepository(cfg *config.Config) (repository.Repository, func(), error) {
	if cfg.Database.Type != "postgres" {
		slog.Warn("Using in-memory repository (development only)")
		return repository.NewInMemoryRepository(), func() {}, nil
	}

	connString := cfg.Database.Postgres.ConnString()
	slog.Info("Connecting to PostgreSQL",
		slog.String("host", cfg.Database.Postgres.Host),
		slog.Int("port", cfg.Database.Postgres.Port),
		slog.String("database", cfg.Database.Postgres.Database),
	)

	pgRepo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	slog.Info("Running database migrations")
	m, err := migrate.New("file://migrations", connString)
	if err != nil {
		pgRepo.Close()
		return nil, nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		pgRepo.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("Could not get migration version", slog.String("error", err.Error()))
	} else {
		slog.Info("Database migration complete",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}

	return pgRepo, pgRepo.Close, nil
}
