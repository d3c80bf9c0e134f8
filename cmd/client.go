package cmd

import "github.com/let-userName-Brian/exempla-ai/internal/client/commands"

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(commands.NewRootCmd())
}
