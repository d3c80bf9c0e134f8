package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/adapter/outbound/repository"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Create the pgvector extension, the exempla schema, the inventory tables,
the embedding status table and the vector collection table.

Migrations already recorded in exempla_schema_migrations are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runMigrate(ctx)
		},
	}
}

func runMigrate(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	factory := NewServiceFactory(cfg)
	defer factory.Close()

	pool, err := factory.CreateDatabasePool(ctx)
	if err != nil {
		return err
	}

	applied, err := repository.Migrate(ctx, pool)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	slogger.Info(ctx, "Migrations complete", slogger.Fields{
		"applied": applied,
		"count":   len(applied),
	})
	return nil
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newMigrateCmd())
}
