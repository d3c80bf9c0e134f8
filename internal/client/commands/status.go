package commands

import (
	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/client"
)

// NewStatusCmd fetches a dataset's embedding status.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <dataset_id>",
		Short: "Show a dataset's embedding status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetID, ok := parseDatasetArg(cmd, args[0])
			if !ok {
				return nil
			}
			c, ok := newClient(cmd)
			if !ok {
				return nil
			}

			status, err := c.GetEmbeddingStatus(commandContext(cmd), datasetID)
			if err != nil {
				return writeFailure(cmd, err)
			}
			return client.WriteSuccess(cmd.OutOrStdout(), status)
		},
	}
}
