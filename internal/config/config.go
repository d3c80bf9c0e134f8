// Package config holds the application configuration loaded through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Embedding providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds the complete application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	LangChain LangChainConfig `mapstructure:"langchain"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Shutdown  ShutdownConfig  `mapstructure:"shutdown"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// APIConfig holds API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
}

// Address returns host:port for the listener.
func (a APIConfig) Address() string {
	return a.Host + ":" + a.Port
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	Schema         string `mapstructure:"schema"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
	MinConnections int    `mapstructure:"min_connections"`
}

// DSN returns the database connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// NATSConfig holds NATS configuration. Status events are only published when
// Enabled is set.
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Stream        string        `mapstructure:"stream"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
}

// EmbeddingConfig selects the provider and tunes the embedding client.
type EmbeddingConfig struct {
	Provider       string        `mapstructure:"provider"`
	Dimensions     int           `mapstructure:"dimensions"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	PacingDelay    time.Duration `mapstructure:"pacing_delay"`
}

// GeminiConfig holds Gemini API configuration.
type GeminiConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	ChatModel string        `mapstructure:"chat_model"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LangChainConfig configures the ollama and openai providers.
type LangChainConfig struct {
	Model        string `mapstructure:"model"`
	ChatModel    string `mapstructure:"chat_model"`
	OllamaHost   string `mapstructure:"ollama_host"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	OpenAIURL    string `mapstructure:"openai_url"`
}

// PipelineConfig sizes the batch embedding pipeline.
type PipelineConfig struct {
	BatchSize       int    `mapstructure:"batch_size"`
	Workers         int    `mapstructure:"workers"`
	ProgressEvery   int    `mapstructure:"progress_every"`
	UpsertChunkSize int    `mapstructure:"upsert_chunk_size"`
	Collection      string `mapstructure:"collection"`
}

// ShutdownConfig controls how long a shutdown waits for running tasks.
type ShutdownConfig struct {
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	HookTimeout  time.Duration `mapstructure:"hook_timeout"`
}

// MetricsConfig toggles the OpenTelemetry meter provider. A positive
// LogInterval logs a metrics snapshot at that interval.
type MetricsConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	LogInterval time.Duration `mapstructure:"log_interval"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.port", "8000")
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.enable_cors", true)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "exempla")
	v.SetDefault("database.name", "exempla")
	v.SetDefault("database.schema", "exempla")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 2)

	// NATS defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream", "EMBEDDING_STATUS")
	v.SetDefault("nats.subject_prefix", "embedding.status")

	// Embedding defaults
	v.SetDefault("embedding.provider", ProviderGemini)
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.max_attempts", 3)
	v.SetDefault("embedding.initial_backoff", "1s")
	v.SetDefault("embedding.pacing_delay", "100ms")

	v.SetDefault("gemini.model", "gemini-embedding-001")
	v.SetDefault("gemini.chat_model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", "30s")

	v.SetDefault("langchain.model", "nomic-embed-text")
	v.SetDefault("langchain.chat_model", "llama3.1")
	v.SetDefault("langchain.ollama_host", "http://localhost:11434")

	// Pipeline defaults
	v.SetDefault("pipeline.batch_size", 20)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.progress_every", 5)
	v.SetDefault("pipeline.upsert_chunk_size", 100)
	v.SetDefault("pipeline.collection", "rvtools_embeddings")

	v.SetDefault("shutdown.drain_timeout", "30s")
	v.SetDefault("shutdown.poll_interval", "1s")
	v.SetDefault("shutdown.hook_timeout", "10s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.service_name", "exempla-ai")
	v.SetDefault("metrics.log_interval", "1m")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// New creates a new Config instance from Viper.
func New(v *viper.Viper) *Config {
	config, err := Load(v)
	if err != nil {
		panic(err)
	}
	return config
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Gemini.APIKey == "" {
		config.Gemini.APIKey = apiKeyFromEnv()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// apiKeyFromEnv falls back to the conventional Google variable names.
func apiKeyFromEnv() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}

	if c.Database.Name == "" {
		return errors.New("database.name is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return errors.New("database.port must be between 1 and 65535")
	}

	switch c.Embedding.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("embedding.provider must be one of gemini, ollama, openai; got %q", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions < 1 {
		return errors.New("embedding.dimensions must be at least 1")
	}

	if c.Pipeline.BatchSize < 1 {
		return errors.New("pipeline.batch_size must be at least 1")
	}

	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be at least 1")
	}

	if c.Pipeline.UpsertChunkSize < 1 {
		return errors.New("pipeline.upsert_chunk_size must be at least 1")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}

	return nil
}

// RequireGeminiKey reports a missing key for commands that call Gemini.
func (c *Config) RequireGeminiKey() error {
	if c.Embedding.Provider == ProviderGemini && c.Gemini.APIKey == "" {
		return errors.New("gemini.api_key is required (set EXEMPLA_GEMINI_API_KEY, GEMINI_API_KEY or GOOGLE_API_KEY)")
	}
	return nil
}
