// Package commands implements the cobra commands that talk to a running
// Exempla API server.
package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/client"
)

const (
	flagAPIURL  = "api-url"
	flagTimeout = "timeout"
)

// Error codes printed in the failure envelope.
const (
	errCodeInvalidConfig   = "INVALID_CONFIG"
	errCodeInvalidArgument = "INVALID_ARGUMENT"
	errCodeConnectionError = "CONNECTION_ERROR"
	errCodeTimeoutError    = "TIMEOUT_ERROR"
	errCodeNotFound        = "NOT_FOUND"
	errCodeServerError     = "SERVER_ERROR"
	errCodeAPIError        = "API_ERROR"
	errCodeEmbeddingFailed = "EMBEDDING_FAILED"
)

// NewRootCmd returns the "client" command group. Its persistent flags are
// inherited by every subcommand.
func NewRootCmd() *cobra.Command {
	defaults, err := client.LoadConfig()
	if err != nil {
		d := client.DefaultConfig()
		defaults = &d
	}

	cmd := &cobra.Command{
		Use:          "client",
		Short:        "Talk to a running Exempla API server",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(flagAPIURL, defaults.APIURL, "API server URL")
	cmd.PersistentFlags().Duration(flagTimeout, defaults.Timeout, "Request timeout")

	cmd.AddCommand(NewHealthCmd(), NewEmbedCmd(), NewStatusCmd(), NewChatCmd())
	return cmd
}

// newClient builds a client from the persistent flags, writing a failure
// envelope when the flags are invalid.
func newClient(cmd *cobra.Command) (*client.Client, bool) {
	apiURL, _ := cmd.Flags().GetString(flagAPIURL)
	timeout, _ := cmd.Flags().GetDuration(flagTimeout)

	c, err := client.NewClient(&client.Config{APIURL: apiURL, Timeout: timeout})
	if err != nil {
		_ = client.WriteError(cmd.OutOrStdout(), errCodeInvalidConfig, err.Error(), nil)
		return nil, false
	}
	return c, true
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseDatasetArg(cmd *cobra.Command, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		_ = client.WriteError(cmd.OutOrStdout(), errCodeInvalidArgument, "dataset id must be a positive integer", raw)
		return 0, false
	}
	return id, true
}

// determineErrorCode classifies a request failure for the envelope.
func determineErrorCode(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return errCodeNotFound
		case apiErr.StatusCode >= 500:
			return errCodeServerError
		case apiErr.Code != "":
			return apiErr.Code
		default:
			return errCodeAPIError
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errCodeTimeoutError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errCodeTimeoutError
		}
		return errCodeConnectionError
	}
	return errCodeAPIError
}

func writeFailure(cmd *cobra.Command, err error) error {
	_ = client.WriteError(cmd.OutOrStdout(), determineErrorCode(err), err.Error(), nil)
	return nil
}
