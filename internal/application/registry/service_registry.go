// Package registry provides service registration and dependency injection for the application.
package registry

import (
	"sync"

	"github.com/let-userName-Brian/exempla-ai/internal/application/service"
	domainservice "github.com/let-userName-Brian/exempla-ai/internal/domain/service"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// Settings carries the tuning knobs for the services the registry builds.
type Settings struct {
	Pipeline        service.PipelineConfig
	Embedding       service.EmbeddingClientConfig
	UpsertChunkSize int
}

// ServiceRegistry provides centralized service creation and management.
// Services are built lazily and memoized so every caller shares one pipeline
// and one submission service.
type ServiceRegistry struct {
	inventory outbound.InventoryRepository
	statuses  outbound.EmbeddingStatusRepository
	index     outbound.VectorIndex
	provider  outbound.EmbeddingProvider
	publisher outbound.StatusPublisher
	chatModel outbound.ChatModel
	shutdown  *service.ShutdownCoordinator
	settings  Settings
	metrics   *service.PipelineMetrics

	once       sync.Once
	embedder   *service.EmbeddingClient
	pipeline   *service.BatchEmbeddingPipeline
	submission *service.EmbeddingSubmissionService
}

// NewServiceRegistry creates a new service registry. publisher and chatModel
// may be nil; every other dependency must be non-nil or the function panics.
func NewServiceRegistry(
	inventory outbound.InventoryRepository,
	statuses outbound.EmbeddingStatusRepository,
	index outbound.VectorIndex,
	provider outbound.EmbeddingProvider,
	publisher outbound.StatusPublisher,
	chatModel outbound.ChatModel,
	shutdown *service.ShutdownCoordinator,
	settings Settings,
) *ServiceRegistry {
	if inventory == nil {
		panic("inventory cannot be nil")
	}
	if statuses == nil {
		panic("statuses cannot be nil")
	}
	if index == nil {
		panic("index cannot be nil")
	}
	if provider == nil {
		panic("provider cannot be nil")
	}
	if shutdown == nil {
		panic("shutdown cannot be nil")
	}

	return &ServiceRegistry{
		inventory: inventory,
		statuses:  statuses,
		index:     index,
		provider:  provider,
		publisher: publisher,
		chatModel: chatModel,
		shutdown:  shutdown,
		settings:  settings,
	}
}

// WithMetrics attaches metrics to every service built afterwards.
func (r *ServiceRegistry) WithMetrics(metrics *service.PipelineMetrics) *ServiceRegistry {
	r.metrics = metrics
	return r
}

func (r *ServiceRegistry) build() {
	r.once.Do(func() {
		r.embedder = service.NewEmbeddingClient(r.provider, r.settings.Embedding).WithMetrics(r.metrics)
		upserter := service.NewVectorUpsertClient(r.index, r.shutdown, r.settings.UpsertChunkSize).
			WithMetrics(r.metrics)
		r.pipeline = service.NewBatchEmbeddingPipeline(
			r.inventory,
			r.statuses,
			r.publisher,
			domainservice.NewInventorySummarizer(),
			r.embedder,
			upserter,
			r.shutdown,
			r.settings.Pipeline,
		).WithMetrics(r.metrics)
		r.submission = service.NewEmbeddingSubmissionService(r.statuses, r.publisher, r.pipeline, r.shutdown)
	})
}

// EmbeddingClient returns the shared embedding client.
func (r *ServiceRegistry) EmbeddingClient() *service.EmbeddingClient {
	r.build()
	return r.embedder
}

// Pipeline returns the shared batch embedding pipeline.
func (r *ServiceRegistry) Pipeline() *service.BatchEmbeddingPipeline {
	r.build()
	return r.pipeline
}

// EmbeddingService returns the shared submission service.
func (r *ServiceRegistry) EmbeddingService() *service.EmbeddingSubmissionService {
	r.build()
	return r.submission
}

// ChatService returns a chat service, or nil when no chat model is configured.
func (r *ServiceRegistry) ChatService() *service.ChatService {
	if r.chatModel == nil {
		return nil
	}
	return service.NewChatService(r.EmbeddingClient(), r.index, r.chatModel).WithMetrics(r.metrics)
}
