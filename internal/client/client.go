package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
)

const (
	// userAgent is the User-Agent header value sent with all API requests.
	userAgent = "exempla-client/1.0"

	contentTypeJSON = "application/json"

	pathHealth = "/health"
	pathEmbed  = "/embed"
	pathChat   = "/chat"
)

// APIError is a non-2xx response. Code and Message come from the server's
// error body when it has one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API request failed: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("API request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client provides methods for interacting with the Exempla API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with the given configuration.
func NewClient(config *Config) (*Client, error) {
	return NewClientWithHTTPClient(config, nil)
}

// NewClientWithHTTPClient creates a client on httpClient, or on a default
// client with the configured timeout when httpClient is nil.
func NewClientWithHTTPClient(config *Config, httpClient *http.Client) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{baseURL: config.APIURL, httpClient: httpClient}, nil
}

// doRequest sends body as JSON when non-nil and decodes the response into result when non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody dto.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil {
			apiErr.Code = errBody.Error
			apiErr.Message = errBody.Message
		}
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Health performs a health check against the API server. An unhealthy server
// answers 503, which is reported as an *APIError.
func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	var result dto.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, pathHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitEmbedding queues a dataset for background embedding.
func (c *Client) SubmitEmbedding(ctx context.Context, datasetID int64) (*dto.EmbedResponse, error) {
	var result dto.EmbedResponse
	if err := c.doRequest(ctx, http.MethodPost, pathEmbed, dto.EmbedRequest{DatasetID: datasetID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetEmbeddingStatus returns the dataset's status, including the not_found sentinel.
func (c *Client) GetEmbeddingStatus(ctx context.Context, datasetID int64) (*dto.EmbeddingStatusResponse, error) {
	path := pathEmbed + "/" + strconv.FormatInt(datasetID, 10) + "/status"
	var result dto.EmbeddingStatusResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Chat asks a question about an embedded dataset.
func (c *Client) Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	var result dto.ChatResponse
	if err := c.doRequest(ctx, http.MethodPost, pathChat, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
