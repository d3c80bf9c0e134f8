// Package gemini implements the embedding provider and chat model on the
// Google Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

const (
	// DefaultModel is the default Gemini embedding model.
	DefaultModel = "gemini-embedding-001"

	// DefaultBaseURL is the Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultDimensions is the output dimensionality requested from the model.
	DefaultDimensions = 768
)

// ClientConfig holds the configuration for the Gemini embedding client.
type ClientConfig struct {
	APIKey     string        `json:"api_key"`
	BaseURL    string        `json:"base_url"`
	Model      string        `json:"model"`
	Timeout    time.Duration `json:"timeout"`
	Dimensions int           `json:"dimensions"`
	UserAgent  string        `json:"user_agent"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("API key cannot be empty or whitespace")
	}
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil || !strings.HasPrefix(c.BaseURL, "http") {
			return errors.New("invalid base URL")
		}
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be positive")
	}
	if c.Dimensions < 0 {
		return errors.New("dimensions cannot be negative")
	}
	return nil
}

// Client calls the embedContent REST endpoint.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Gemini embedding client with the provided configuration.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	finalConfig := applyConfigDefaults(config)
	return &Client{
		config:     finalConfig,
		httpClient: createHTTPClient(finalConfig.Timeout),
	}, nil
}

// NewClientFromEnv fills a missing API key from GEMINI_API_KEY, then GOOGLE_API_KEY.
func NewClientFromEnv(config *ClientConfig) (*Client, error) {
	if config == nil {
		config = &ClientConfig{}
	}
	envConfig := *config
	if envConfig.APIKey == "" {
		envConfig.APIKey = APIKeyFromEnv()
	}
	if strings.TrimSpace(envConfig.APIKey) == "" {
		return nil, errors.New("API key not found in config or environment variables")
	}
	return NewClient(&envConfig)
}

// APIKeyFromEnv returns GEMINI_API_KEY or, if unset, GOOGLE_API_KEY.
func APIKeyFromEnv() string {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
}

func applyConfigDefaults(config *ClientConfig) *ClientConfig {
	finalConfig := *config
	finalConfig.APIKey = strings.TrimSpace(config.APIKey)

	if finalConfig.BaseURL == "" {
		finalConfig.BaseURL = DefaultBaseURL
	}
	if finalConfig.Model == "" {
		finalConfig.Model = DefaultModel
	}
	finalConfig.Model = strings.TrimPrefix(finalConfig.Model, "models/")
	if finalConfig.Timeout == 0 {
		finalConfig.Timeout = 30 * time.Second
	}
	if finalConfig.Dimensions == 0 {
		finalConfig.Dimensions = DefaultDimensions
	}
	if finalConfig.UserAgent == "" {
		finalConfig.UserAgent = "Exempla-Gemini-Client/1.0.0"
	}
	return &finalConfig
}

func createHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		MaxConnsPerHost:       50,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		// Don't follow redirects for API calls
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// GetConfig returns a copy of the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	configCopy := *c.config
	return &configCopy
}

// ModelName returns the configured embedding model.
func (c *Client) ModelName() string {
	return c.config.Model
}

// CreateRequest creates an HTTP request with authentication and JSON headers.
func (c *Client) CreateRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	if method == "" {
		return nil, errors.New("HTTP method cannot be empty")
	}
	if endpoint == "" {
		return nil, errors.New("endpoint cannot be empty")
	}

	fullURL := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	if _, err := url.Parse(fullURL); err != nil {
		return nil, fmt.Errorf("invalid URL constructed: %s, error: %w", fullURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	return req, nil
}

// EmbedText embeds one text. Provider failures are returned as *outbound.EmbeddingError.
func (c *Client) EmbedText(ctx context.Context, text string, taskType outbound.EmbeddingTaskType) ([]float32, error) {
	body, err := c.SerializeEmbeddingRequest(ctx, text, taskType)
	if err != nil {
		return nil, err
	}

	req, err := c.CreateRequest(ctx, http.MethodPost, "models/"+c.config.Model+":embedContent", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.HandleNetworkError(ctx, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.HandleHTTPError(ctx, resp)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.HandleNetworkError(ctx, err)
	}

	vector, err := c.DeserializeEmbeddingResponse(ctx, data)
	if err != nil {
		return nil, err
	}
	slogger.Debug(ctx, "Gemini embedding generated", slogger.Fields{
		"model":       c.config.Model,
		"task_type":   string(taskType),
		"text_length": len(text),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return vector, nil
}

// SerializeEmbeddingRequest builds the embedContent request body.
func (c *Client) SerializeEmbeddingRequest(
	ctx context.Context,
	text string,
	taskType outbound.EmbeddingTaskType,
) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &outbound.EmbeddingError{
			Code:    "empty_text",
			Type:    outbound.EmbeddingErrorTypeValidation,
			Message: "text content cannot be empty",
		}
	}
	if taskType == "" {
		taskType = outbound.TaskTypeRetrievalDocument
	}

	data, err := json.Marshal(newEmbedContentRequest(c.config.Model, text, string(taskType), c.config.Dimensions))
	if err != nil {
		slogger.Error(ctx, "Failed to marshal embedding request", slogger.Fields{
			"error":       err.Error(),
			"text_length": len(text),
		})
		return nil, &outbound.EmbeddingError{
			Code:    "serialization_error",
			Type:    outbound.EmbeddingErrorTypeValidation,
			Message: fmt.Sprintf("failed to serialize request: %v", err),
			Cause:   err,
		}
	}
	return data, nil
}

// DeserializeEmbeddingResponse extracts the vector from an embedContent response.
func (c *Client) DeserializeEmbeddingResponse(ctx context.Context, data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, &outbound.EmbeddingError{
			Code:    "empty_response",
			Type:    outbound.EmbeddingErrorTypeValidation,
			Message: "response data cannot be empty",
		}
	}

	var response embedContentResponse
	if err := json.Unmarshal(data, &response); err != nil {
		slogger.Error(ctx, "Failed to parse embedding response JSON", slogger.Fields{
			"error":            err.Error(),
			"response_size":    len(data),
			"response_preview": string(data[:min(len(data), 200)]),
		})
		return nil, &outbound.EmbeddingError{
			Code:    "parse_error",
			Type:    outbound.EmbeddingErrorTypeValidation,
			Message: fmt.Sprintf("failed to parse response JSON: %v", err),
			Cause:   err,
		}
	}
	if len(response.Embedding.Values) == 0 {
		return nil, &outbound.EmbeddingError{
			Code:    "missing_embedding",
			Type:    outbound.EmbeddingErrorTypeValidation,
			Message: "response missing required embedding field or embedding is empty",
		}
	}

	if len(response.Embedding.Values) != c.config.Dimensions {
		slogger.Warn(ctx, "Embedding dimensions mismatch", slogger.Fields{
			"expected_dimensions": c.config.Dimensions,
			"actual_dimensions":   len(response.Embedding.Values),
		})
	}
	return response.Embedding.Values, nil
}
