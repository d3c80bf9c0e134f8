package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
)

// DefaultChatModel is used when no chat model is configured.
const DefaultChatModel = "gemini-2.0-flash"

// ChatModelConfig configures the generative model.
type ChatModelConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ChatModel generates answers through the Gen AI SDK.
type ChatModel struct {
	client *genai.Client
	model  string
}

// NewChatModel creates a chat model on the Gemini API backend.
func NewChatModel(ctx context.Context, config ChatModelConfig) (*ChatModel, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" {
		apiKey = APIKeyFromEnv()
	}
	if apiKey == "" {
		return nil, errors.New("API key not found in config or environment variables")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, err
	}

	model := strings.TrimPrefix(config.Model, "models/")
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatModel{client: client, model: model}, nil
}

// ModelName returns the configured chat model.
func (m *ChatModel) ModelName() string {
	return m.model
}

// GenerateText sends prompt as a single user turn and returns the response text.
func (m *ChatModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), nil)
	if err != nil {
		embErr := convertSDKError(err)
		slogger.Error(ctx, "Gemini generate content failed", slogger.Fields{
			"model": m.model,
			"error": embErr.Error(),
		})
		return "", embErr
	}
	return resp.Text(), nil
}
