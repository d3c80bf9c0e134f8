package cmd

import (
	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/version"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, short)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Show only version number")
	return cmd
}

func runVersion(cmd *cobra.Command, short bool) error {
	return version.GetVersion().Write(cmd.OutOrStdout(), short)
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newVersionCmd())
}
