package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded SQL migrations to DATABASE_URL.
With --status, only list applied and pending migrations.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "Show migration status without applying anything")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pool.Close()

	if !mustGetBool(cmd, "status") {
		if err := pool.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Println("Migrations applied.")
	}

	pending, err := pool.PendingMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pending migrations: %w", err)
	}
	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	fmt.Printf("Applied (%d):\n", len(applied))
	for _, v := range applied {
		fmt.Printf("  %s\n", v)
	}
	fmt.Printf("Pending (%d):\n", len(pending))
	for _, v := range pending {
		fmt.Printf("  %s\n", v)
	}
	return nil
}
