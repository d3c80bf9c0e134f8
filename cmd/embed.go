package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/adapter/outbound/repository"
	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
)

func newEmbedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed <dataset_id>",
		Short: "Embed a dataset in the foreground",
		Long: `Embed every VM and host record of a dataset and print the final status.

An interrupt marks the run as interrupted, waits for in-flight batches and exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetID, err := parseDatasetID(args[0])
			if err != nil {
				return err
			}
			return runEmbed(cmd.Context(), cmd.OutOrStdout(), datasetID)
		},
	}
}

func runEmbed(ctx context.Context, out io.Writer, datasetID int64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	factory := NewServiceFactory(cfg)
	defer factory.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	coordinator := factory.CreateShutdownCoordinator(runCtx)
	services, err := factory.CreateRegistry(runCtx, coordinator, false)
	if err != nil {
		return err
	}
	go coordinator.Run(runCtx)

	status, err := services.EmbeddingService().RunSync(runCtx, datasetID)
	if err != nil {
		return err
	}
	return writeJSON(out, status)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <dataset_id>",
		Short: "Print a dataset's embedding status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetID, err := parseDatasetID(args[0])
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cmd.OutOrStdout(), datasetID)
		},
	}
}

func runStatus(ctx context.Context, out io.Writer, datasetID int64) error {
	if ctx == nil {
		ctx = context.Background()
	}
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

	record, err := repository.NewPostgreSQLEmbeddingStatusRepository(pool).FindByDatasetID(ctx, datasetID)
	if errors.Is(err, domain.ErrEmbeddingStatusNotFound) {
		return writeJSON(out, dto.NewNotFoundStatusResponse(datasetID))
	}
	if err != nil {
		return err
	}
	return writeJSON(out, dto.NewEmbeddingStatusResponse(record))
}

// parseDatasetID accepts positive integer ids only.
func parseDatasetID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDatasetID, raw)
	}
	return id, nil
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newEmbedCmd(), newStatusCmd())
}
