package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// HandleHTTPError converts a non-200 response to an EmbeddingError and closes the body.
func (c *Client) HandleHTTPError(ctx context.Context, response *http.Response) *outbound.EmbeddingError {
	body, readErr := io.ReadAll(response.Body)
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			slogger.Error(ctx, "Failed to close response body", slogger.Fields{
				"error": closeErr.Error(),
			})
		}
	}()

	var apiErrorMessage string
	if readErr == nil && len(body) > 0 {
		var errorResp apiErrorBody
		if err := json.Unmarshal(body, &errorResp); err == nil {
			apiErrorMessage = errorResp.Error.Message
		}
	}

	slogger.Error(ctx, "HTTP error received from Gemini API", slogger.Fields{
		"status_code":     response.StatusCode,
		"status":          response.Status,
		"response_length": len(body),
		"api_message":     apiErrorMessage,
	})

	message := fmt.Sprintf("HTTP %d", response.StatusCode)
	if response.StatusCode == http.StatusTooManyRequests {
		message = fmt.Sprintf("Rate limit exceeded (HTTP %d)", response.StatusCode)
		if retryAfter := response.Header.Get("Retry-After"); retryAfter != "" {
			message += ". Retry after " + retryAfter + " seconds"
		}
	}
	if apiErrorMessage != "" {
		message += ": " + apiErrorMessage
	}
	return outbound.ClassifyStatusCode(response.StatusCode, message, nil)
}

// HandleNetworkError converts a transport failure to an EmbeddingError.
func (c *Client) HandleNetworkError(_ context.Context, err error) *outbound.EmbeddingError {
	return networkError(err)
}

func networkError(err error) *outbound.EmbeddingError {
	if errors.Is(err, context.Canceled) {
		return &outbound.EmbeddingError{
			Code:    "request_canceled",
			Type:    outbound.EmbeddingErrorTypeNetwork,
			Message: "request was canceled",
			Cause:   err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &outbound.EmbeddingError{
			Code:      "connection_timeout",
			Type:      outbound.EmbeddingErrorTypeNetwork,
			Message:   "connection timeout",
			Retryable: true,
			Cause:     err,
		}
	}

	if strings.Contains(err.Error(), "connection refused") {
		return &outbound.EmbeddingError{
			Code:      "connection_refused",
			Type:      outbound.EmbeddingErrorTypeNetwork,
			Message:   "connection refused",
			Retryable: true,
			Cause:     err,
		}
	}

	return &outbound.EmbeddingError{
		Code:      "network_error",
		Type:      outbound.EmbeddingErrorTypeNetwork,
		Message:   err.Error(),
		Retryable: true,
		Cause:     err,
	}
}

// convertSDKError maps a genai SDK error to an EmbeddingError.
func convertSDKError(err error) *outbound.EmbeddingError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Status
		}
		return outbound.ClassifyStatusCode(apiErr.Code, message, err)
	}
	return networkError(err)
}
