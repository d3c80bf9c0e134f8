package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/client"
)

// NewChatCmd asks a question about an embedded dataset.
func NewChatCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "chat <dataset_id> <question...>",
		Short: "Ask a question about a dataset",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetID, ok := parseDatasetArg(cmd, args[0])
			if !ok {
				return nil
			}
			c, ok := newClient(cmd)
			if !ok {
				return nil
			}

			answer, err := c.Chat(commandContext(cmd), dto.ChatRequest{
				DatasetID:  datasetID,
				UserPrompt: strings.Join(args[1:], " "),
				TopK:       topK,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			return client.WriteSuccess(cmd.OutOrStdout(), answer)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of documents to retrieve (server default when 0)")
	return cmd
}
