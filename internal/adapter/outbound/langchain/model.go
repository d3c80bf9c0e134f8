package langchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps a langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates a chat model for the configured provider.
func NewModel(cfg Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OpenAI API key required")
		}
		opts := []openai.Option{openai.WithToken(cfg.OpenAIAPIKey), openai.WithModel(cfg.Model)}
		if cfg.OpenAIURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &Model{llm: model, modelName: cfg.Model}, nil
}

// ModelName returns the LLM model name.
func (m *Model) ModelName() string {
	return m.modelName
}

// GenerateText generates text from a single prompt.
func (m *Model) GenerateText(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return response, nil
}
