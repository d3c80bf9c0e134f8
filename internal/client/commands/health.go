package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/client"
)

// NewHealthCmd queries GET /health. Failures are printed as an envelope and
// never returned to cobra.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API server health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, ok := newClient(cmd)
			if !ok {
				return nil
			}
			timeout, _ := cmd.Flags().GetDuration(flagTimeout)
			ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
			defer cancel()

			health, err := c.Health(ctx)
			if err != nil {
				return writeFailure(cmd, err)
			}
			return client.WriteSuccess(cmd.OutOrStdout(), health)
		},
	}
}
