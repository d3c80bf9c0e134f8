// Package langchain implements the embedding provider and chat model on
// langchaingo, for Ollama and OpenAI deployments.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// Supported providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config selects a provider and model.
type Config struct {
	Provider     string
	Model        string
	OllamaHost   string
	OpenAIAPIKey string
	OpenAIURL    string
}

// Embedder adapts a langchaingo embedder to outbound.EmbeddingProvider.
type Embedder struct {
	model     embeddings.Embedder
	modelName string
}

// NewEmbedder creates an embedder for the configured provider.
func NewEmbedder(cfg Config) (*Embedder, error) {
	var model embeddings.Embedder
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		llm, ollamaErr := ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if ollamaErr != nil {
			return nil, fmt.Errorf("create ollama client: %w", ollamaErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OpenAI API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.OpenAIURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIURL))
		}
		llm, openaiErr := openai.New(opts...)
		if openaiErr != nil {
			return nil, fmt.Errorf("create openai client: %w", openaiErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	return newEmbedder(model, cfg.Model), nil
}

func newEmbedder(model embeddings.Embedder, modelName string) *Embedder {
	return &Embedder{model: model, modelName: modelName}
}

// ModelName returns the embedding model name.
func (e *Embedder) ModelName() string {
	return e.modelName
}

// EmbedText embeds one text. Query task types use the provider's query
// embedding; everything else is embedded as a document.
func (e *Embedder) EmbedText(ctx context.Context, text string, taskType outbound.EmbeddingTaskType) ([]float32, error) {
	start := time.Now()

	var vector []float32
	var err error
	if taskType == outbound.TaskTypeRetrievalQuery {
		vector, err = e.model.EmbedQuery(ctx, text)
	} else {
		var vectors [][]float32
		vectors, err = e.model.EmbedDocuments(ctx, []string{text})
		if err == nil {
			if len(vectors) == 0 {
				return nil, &outbound.EmbeddingError{
					Code:    "missing_embedding",
					Type:    outbound.EmbeddingErrorTypeValidation,
					Message: "no embedding returned",
				}
			}
			vector = vectors[0]
		}
	}

	if err != nil {
		slogger.Warn(ctx, "Embedding failed", slogger.Fields{
			"model":       e.modelName,
			"text_length": len(text),
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		})
		return nil, classifyError(err)
	}

	slogger.Debug(ctx, "Embedding complete", slogger.Fields{
		"model":       e.modelName,
		"text_length": len(text),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return vector, nil
}

// classifyError wraps provider errors; langchaingo surfaces HTTP status only
// in the message text.
func classifyError(err error) *outbound.EmbeddingError {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.Canceled):
		return &outbound.EmbeddingError{Code: "request_canceled", Type: outbound.EmbeddingErrorTypeNetwork, Message: err.Error(), Cause: err}
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return outbound.ClassifyStatusCode(429, err.Error(), err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized"):
		return outbound.ClassifyStatusCode(401, err.Error(), err)
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "timeout"):
		return &outbound.EmbeddingError{
			Code:      "network_error",
			Type:      outbound.EmbeddingErrorTypeNetwork,
			Message:   err.Error(),
			Retryable: true,
			Cause:     err,
		}
	default:
		return &outbound.EmbeddingError{Code: "provider_error", Type: outbound.EmbeddingErrorTypeServer, Message: err.Error(), Cause: err}
	}
}
