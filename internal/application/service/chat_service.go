package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// QueryEmbedder embeds a search query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatService answers questions about a dataset from its nearest vectors.
type ChatService struct {
	embedder QueryEmbedder
	index    outbound.VectorIndex
	model    outbound.ChatModel
	metrics  *PipelineMetrics
}

// NewChatService creates a new ChatService instance.
func NewChatService(embedder QueryEmbedder, index outbound.VectorIndex, model outbound.ChatModel) *ChatService {
	if embedder == nil {
		panic("embedder cannot be nil")
	}
	if index == nil {
		panic("index cannot be nil")
	}
	if model == nil {
		panic("model cannot be nil")
	}
	return &ChatService{embedder: embedder, index: index, model: model}
}

// WithMetrics records chat request metrics.
func (s *ChatService) WithMetrics(metrics *PipelineMetrics) *ChatService {
	s.metrics = metrics
	return s
}

// Chat embeds the question, retrieves the dataset's top matches and asks the
// chat model. A model failure is reported inside the response text.
func (s *ChatService) Chat(ctx context.Context, request dto.ChatRequest) (response *dto.ChatResponse, err error) {
	started := time.Now()
	defer func() { s.metrics.RecordChat(ctx, time.Since(started), err) }()

	if request.DatasetID <= 0 {
		return nil, domain.ErrInvalidDatasetID
	}
	if strings.TrimSpace(request.UserPrompt) == "" {
		return nil, fmt.Errorf("%w: user_prompt is required", domain.ErrInvalidInput)
	}
	topK := common.ClampTopK(request.TopK)

	vector, err := s.embedder.EmbedQuery(ctx, request.UserPrompt)
	if err != nil {
		return nil, common.WrapServiceError(common.OpEmbedQuery, fmt.Errorf("%w: %w", domain.ErrUnavailable, err))
	}

	docs, err := s.index.Search(ctx, vector, outbound.SearchFilter{Key: "dataset_id", Value: request.DatasetID}, topK)
	if err != nil {
		return nil, common.WrapServiceError(common.OpSearchVectors, err)
	}
	slogger.Info(ctx, "Retrieved documents for chat", slogger.Fields{
		"dataset_id": request.DatasetID,
		"documents":  len(docs),
		"top_k":      topK,
	})

	prompt := BuildChatPrompt(request.UserPrompt, docs, request.FilterOptions)
	answer, genErr := s.model.GenerateText(ctx, prompt)
	if genErr != nil {
		slogger.ErrorWithError(ctx, genErr, "Chat model call failed", slogger.Fields{"dataset_id": request.DatasetID})
		return &dto.ChatResponse{Response: "Sorry, I encountered an error: " + genErr.Error()}, nil
	}
	return &dto.ChatResponse{Response: answer}, nil
}

// BuildChatPrompt renders the retrieved documents, the applied filters and
// the question into one prompt.
func BuildChatPrompt(userPrompt string, docs []outbound.SearchResult, filters *dto.FilterOptions) string {
	var docsText strings.Builder
	docsText.WriteString("Here are some relevant documents from the dataset:\n\n")

	for i, doc := range docs {
		fmt.Fprintf(&docsText, "\n--- Document %d ---\n", i+1)

		metadata := doc.Metadata()
		if len(metadata) > 0 {
			docsText.WriteString("Metadata:\n")
			keys := make([]string, 0, len(metadata))
			for key := range metadata {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(&docsText, "- %s: %v\n", key, metadata[key])
			}
		}

		if content := doc.Content(); content != "" {
			fmt.Fprintf(&docsText, "\nContent:\n%s\n", content)
		}
		if doc.Score != 0 {
			fmt.Fprintf(&docsText, "\nRelevance score: %.4f\n", doc.Score)
		}
	}

	filterText := ""
	if !filters.IsEmpty() {
		if encoded, err := json.Marshal(filters); err == nil {
			filterText = "\nThe user has applied these filters: " + string(encoded)
		}
	}

	return fmt.Sprintf(`
You are an AI assistant helping with infrastructure data analysis.

%s
%s

User question: %s

Please provide a helpful response based on the information above. If the information needed to answer the question is not available in the documents, explain what information is missing.
`, docsText.String(), filterText, userPrompt)
}
