package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/let-userName-Brian/exempla-ai/internal/adapter/inbound/service"
	"github.com/let-userName-Brian/exempla-ai/internal/adapter/outbound/gemini"
	"github.com/let-userName-Brian/exempla-ai/internal/adapter/outbound/langchain"
	"github.com/let-userName-Brian/exempla-ai/internal/adapter/outbound/messaging"
	"github.com/let-userName-Brian/exempla-ai/internal/adapter/outbound/repository"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/application/registry"
	appservice "github.com/let-userName-Brian/exempla-ai/internal/application/service"
	"github.com/let-userName-Brian/exempla-ai/internal/config"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
	"github.com/let-userName-Brian/exempla-ai/internal/version"
)

// ServiceFactory creates and manages service instances. Connections are opened
// once and released by Close.
type ServiceFactory struct {
	config *config.Config

	pool      *pgxpool.Pool
	publisher *messaging.NATSStatusPublisher
	metrics   *appservice.PipelineMetrics
	meters    *sdkmetric.MeterProvider
}

// NewServiceFactory creates a new ServiceFactory.
func NewServiceFactory(cfg *config.Config) *ServiceFactory {
	return &ServiceFactory{config: cfg}
}

// DatabaseConfig maps the application config to the repository's pool settings.
func (sf *ServiceFactory) DatabaseConfig() repository.DatabaseConfig {
	schema := sf.config.Database.Schema
	if schema == "" {
		schema = repository.Schema
	}
	return repository.DatabaseConfig{
		Host:           sf.config.Database.Host,
		Port:           sf.config.Database.Port,
		Database:       sf.config.Database.Name,
		Username:       sf.config.Database.User,
		Password:       sf.config.Database.Password,
		Schema:         schema,
		MaxConnections: sf.config.Database.MaxConnections,
		MinConnections: sf.config.Database.MinConnections,
		SSLMode:        sf.config.Database.SSLMode,
	}
}

// CreateDatabasePool returns the shared connection pool, connecting on first use.
func (sf *ServiceFactory) CreateDatabasePool(ctx context.Context) (*pgxpool.Pool, error) {
	if sf.pool != nil {
		return sf.pool, nil
	}
	pool, err := repository.NewDatabaseConnection(ctx, sf.DatabaseConfig())
	if err != nil {
		return nil, err
	}
	sf.pool = pool
	return pool, nil
}

// CreateEmbeddingProvider builds the provider selected by embedding.provider.
func (sf *ServiceFactory) CreateEmbeddingProvider() (outbound.EmbeddingProvider, error) {
	switch sf.config.Embedding.Provider {
	case config.ProviderGemini:
		if err := sf.config.RequireGeminiKey(); err != nil {
			return nil, err
		}
		return gemini.NewClient(&gemini.ClientConfig{
			APIKey:     sf.config.Gemini.APIKey,
			BaseURL:    sf.config.Gemini.BaseURL,
			Model:      sf.config.Gemini.Model,
			Timeout:    sf.config.Gemini.Timeout,
			Dimensions: sf.config.Embedding.Dimensions,
		})
	default:
		return langchain.NewEmbedder(sf.langchainConfig(sf.config.LangChain.Model))
	}
}

// CreateChatModel builds the chat model for the configured provider.
func (sf *ServiceFactory) CreateChatModel(ctx context.Context) (outbound.ChatModel, error) {
	switch sf.config.Embedding.Provider {
	case config.ProviderGemini:
		if err := sf.config.RequireGeminiKey(); err != nil {
			return nil, err
		}
		return gemini.NewChatModel(ctx, gemini.ChatModelConfig{
			APIKey: sf.config.Gemini.APIKey,
			Model:  sf.config.Gemini.ChatModel,
		})
	default:
		return langchain.NewModel(sf.langchainConfig(sf.config.LangChain.ChatModel))
	}
}

func (sf *ServiceFactory) langchainConfig(model string) langchain.Config {
	return langchain.Config{
		Provider:     sf.config.Embedding.Provider,
		Model:        model,
		OllamaHost:   sf.config.LangChain.OllamaHost,
		OpenAIAPIKey: sf.config.LangChain.OpenAIAPIKey,
		OpenAIURL:    sf.config.LangChain.OpenAIURL,
	}
}

// CreateStatusPublisher connects the NATS publisher when enabled. A failed
// connection degrades to no publishing rather than blocking startup.
func (sf *ServiceFactory) CreateStatusPublisher(ctx context.Context) outbound.StatusPublisher {
	if !sf.config.NATS.Enabled {
		return messaging.NoopStatusPublisher{}
	}
	if sf.publisher != nil {
		return sf.publisher
	}

	publisher, err := messaging.NewNATSStatusPublisher(sf.config.NATS)
	if err != nil {
		slogger.Warn(ctx, "Invalid NATS configuration, status events disabled", slogger.Field("error", err.Error()))
		return messaging.NoopStatusPublisher{}
	}
	if err := publisher.Connect(); err != nil {
		slogger.Warn(ctx, "NATS unavailable, status events disabled", slogger.Field("error", err.Error()))
		return messaging.NoopStatusPublisher{}
	}
	if err := publisher.EnsureStream(); err != nil {
		slogger.Warn(ctx, "Failed to ensure status stream", slogger.Field("error", err.Error()))
	}
	sf.publisher = publisher
	return publisher
}

// CreateMetrics installs the meter provider and returns pipeline metrics, or
// nil when metrics are disabled.
func (sf *ServiceFactory) CreateMetrics(ctx context.Context) *appservice.PipelineMetrics {
	if !sf.config.Metrics.Enabled {
		return nil
	}
	if sf.metrics != nil {
		return sf.metrics
	}

	var reader sdkmetric.Reader
	if sf.config.Metrics.LogInterval > 0 {
		reader = appservice.NewMetricsLogReader(appservice.NewMetricsLogExporter(), sf.config.Metrics.LogInterval)
	}
	provider, err := appservice.NewMeterProvider(ctx, sf.config.Metrics.ServiceName, version.GetVersion().Version, reader)
	if err != nil {
		slogger.Warn(ctx, "Failed to create meter provider", slogger.Field("error", err.Error()))
		return nil
	}
	sf.meters = provider
	metrics, err := appservice.NewPipelineMetrics()
	if err != nil {
		slogger.Warn(ctx, "Failed to create pipeline metrics", slogger.Field("error", err.Error()))
		return nil
	}
	sf.metrics = metrics
	return metrics
}

// CreateShutdownCoordinator builds the coordinator from the shutdown settings.
func (sf *ServiceFactory) CreateShutdownCoordinator(ctx context.Context) *appservice.ShutdownCoordinator {
	return appservice.NewShutdownCoordinator(appservice.ShutdownCoordinatorConfig{
		DrainTimeout: sf.config.Shutdown.DrainTimeout,
		PollInterval: sf.config.Shutdown.PollInterval,
		HookTimeout:  sf.config.Shutdown.HookTimeout,
	}).WithMetrics(sf.CreateMetrics(ctx))
}

// CreateRegistry wires repositories, providers and the coordinator into a
// service registry. The chat model is only built when withChat is set.
func (sf *ServiceFactory) CreateRegistry(
	ctx context.Context,
	shutdown *appservice.ShutdownCoordinator,
	withChat bool,
) (*registry.ServiceRegistry, error) {
	pool, err := sf.CreateDatabasePool(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	provider, err := sf.CreateEmbeddingProvider()
	if err != nil {
		return nil, fmt.Errorf("create embedding provider: %w", err)
	}

	var chatModel outbound.ChatModel
	if withChat {
		chatModel, err = sf.CreateChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
	}

	return registry.NewServiceRegistry(
		repository.NewPostgreSQLInventoryRepository(pool),
		repository.NewPostgreSQLEmbeddingStatusRepository(pool),
		repository.NewPostgreSQLVectorIndex(pool, sf.config.Pipeline.Collection),
		provider,
		sf.CreateStatusPublisher(ctx),
		chatModel,
		shutdown,
		registry.Settings{
			Pipeline: appservice.PipelineConfig{
				BatchSize:     sf.config.Pipeline.BatchSize,
				Workers:       sf.config.Pipeline.Workers,
				ProgressEvery: sf.config.Pipeline.ProgressEvery,
			},
			Embedding: appservice.EmbeddingClientConfig{
				Dimensions:     sf.config.Embedding.Dimensions,
				MaxAttempts:    sf.config.Embedding.MaxAttempts,
				InitialBackoff: sf.config.Embedding.InitialBackoff,
				PacingDelay:    sf.config.Embedding.PacingDelay,
			},
			UpsertChunkSize: sf.config.Pipeline.UpsertChunkSize,
		},
	).WithMetrics(sf.CreateMetrics(ctx)), nil
}

// CreateHealthService reports on the database and, when connected, NATS.
func (sf *ServiceFactory) CreateHealthService() *service.HealthServiceAdapter {
	var database service.DatabasePinger
	if sf.pool != nil {
		database = repository.NewDatabaseHealthChecker(sf.pool)
	}
	var publisher service.PublisherHealthReporter
	if sf.publisher != nil {
		publisher = sf.publisher
	}
	return service.NewHealthServiceAdapter(database, publisher, version.GetVersion().Version)
}

// Close flushes metrics and releases the NATS connection and the pool.
func (sf *ServiceFactory) Close() {
	if sf.meters != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sf.meters.Shutdown(ctx); err != nil {
			slogger.WarnNoCtx("Failed to flush metrics", slogger.Field("error", err.Error()))
		}
		cancel()
		sf.meters = nil
	}
	if sf.publisher != nil {
		if err := sf.publisher.Disconnect(); err != nil {
			slogger.WarnNoCtx("Failed to disconnect NATS", slogger.Field("error", err.Error()))
		}
		sf.publisher = nil
	}
	if sf.pool != nil {
		sf.pool.Close()
		sf.pool = nil
	}
}
