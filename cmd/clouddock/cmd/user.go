package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clouddock-systems/clouddock/internal/audit"
	"github.com/clouddock-systems/clouddock/internal/config"
	"github.com/clouddock-systems/clouddock/internal/repository"
	"github.com/clouddock-systems/clouddock/internal/service"
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Provision a panel user",
	Long:  "Create a user identity directly against the configured database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if username == "" || email == "" || password == "" {
			return fmt.Errorf("username, email and password are required")
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		if cfg.Database.Type != "postgres" {
			return fmt.Errorf("create-user requires a postgres database")
		}

		repo, err := repository.NewPostgresRepository(ctx, cfg.Database.Postgres.ConnString())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer repo.Close()

		auditLogger := audit.NewLogger(repo, cfg.Audit.MaxEntriesPerProject)
		authService := service.NewAuthService(repo, auditLogger, &cfg.Auth)

		user, err := authService.CreateUser(ctx, username, email, password)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Printf("User created: %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	createUserCmd.Flags().String("username", "", "username for the new user")
	createUserCmd.Flags().String("email", "", "email for the new user")
	createUserCmd.Flags().String("password", "", "initial password")
	rootCmd.AddCommand(createUserCmd)
}
