package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/rms-pricing/internal/config"
	"github.com/noah-isme/rms-pricing/internal/store"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the pricing schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrate(cmd, true)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrate(cmd, false)
	},
}

func runMigrate(cmd *cobra.Command, up bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := store.Migrate(cfg.DatabaseURL, up); err != nil {
		return err
	}
	direction := "down"
	if up {
		direction = "up"
	}
	log := logger()
	log.Debug().Str("direction", direction).Msg("migrations finished")
	cmd.Printf("migrate %s: ok\n", direction)
	return nil
}
