package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "clouddock",
	Short: "CloudDock management panel",
	Long: `clouddock is a self-hosted management panel for Hetzner Cloud.

It fronts the provider API with token-authenticated access and keeps an
append-only, capped audit trail of every action per project.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}
