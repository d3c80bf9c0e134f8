package commands

import (
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/client"
)

// NewEmbedCmd submits a dataset and optionally waits for the run to finish.
func NewEmbedCmd() *cobra.Command {
	var wait bool
	var interval, maxWait time.Duration

	cmd := &cobra.Command{
		Use:   "embed <dataset_id>",
		Short: "Submit a dataset for embedding",
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
			ctx := commandContext(cmd)

			accepted, err := c.SubmitEmbedding(ctx, datasetID)
			if err != nil {
				return writeFailure(cmd, err)
			}
			if !wait {
				return client.WriteSuccess(cmd.OutOrStdout(), accepted)
			}

			poller, err := client.NewPoller(c, &client.PollerConfig{Interval: interval, MaxWait: maxWait})
			if err != nil {
				return writeFailure(cmd, err)
			}
			status, err := poller.WaitForCompletion(ctx, datasetID, cmd.ErrOrStderr())
			if err != nil {
				return writePollFailure(cmd.OutOrStdout(), err, status)
			}
			return client.WriteSuccess(cmd.OutOrStdout(), status)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the run completes, fails or is interrupted")
	cmd.Flags().DurationVar(&interval, "poll-interval", client.DefaultPollInterval, "Time between status polls")
	cmd.Flags().DurationVar(&maxWait, "max-wait", client.DefaultMaxWait, "Give up polling after this long")
	return cmd
}

func writePollFailure(w io.Writer, err error, status any) error {
	code := errCodeAPIError
	switch {
	case errors.Is(err, client.ErrEmbeddingFailed), errors.Is(err, client.ErrEmbeddingInterrupted):
		code = errCodeEmbeddingFailed
	case errors.Is(err, client.ErrEmbeddingNotFound):
		code = errCodeNotFound
	case errors.Is(err, client.ErrPollingTimeout):
		code = errCodeTimeoutError
	}
	_ = client.WriteError(w, code, err.Error(), status)
	return nil
}
