// Package repository implements the record store, status store and vector
// index on PostgreSQL with pgvector.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/retry"
)

// Schema is the PostgreSQL schema holding every table this package uses.
const Schema = "exempla"

// DatabaseConfig represents database connection configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	Database        string
	Username        string
	Password        string
	Schema          string
	MaxConnections  int
	MinConnections  int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SSLMode         string
}

// Validate validates the database configuration.
func (c DatabaseConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if c.Database == "" {
		return errors.New("database is required")
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// ConnString renders the keyword/value connection string.
func (c DatabaseConfig) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	schema := c.Schema
	if schema == "" {
		schema = Schema
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s search_path=%s,public",
		c.Host, c.Port, c.Database, c.Username, c.Password, sslMode, schema,
	)
}

// NewDatabaseConnection creates a connection pool and verifies it with a ping.
// Transient ping failures, e.g. a database still starting, are retried with
// the default backoff.
func NewDatabaseConnection(ctx context.Context, config DatabaseConfig) (*pgxpool.Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = 10
	if config.MaxConnections > 0 {
		poolConfig.MaxConns = int32(config.MaxConnections)
	}
	if config.MinConnections > 0 {
		poolConfig.MinConns = int32(config.MinConnections)
	}
	if config.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	}
	if config.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if pingErr := pingWithRetry(ctx, retry.NewRetryExecutor(retry.DefaultRetryConfig()), pool.Ping); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return pool, nil
}

func pingWithRetry(ctx context.Context, executor *retry.RetryExecutor, ping func(context.Context) error) error {
	return executor.Execute(ctx, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return ping(pingCtx)
	})
}

// DatabaseHealthChecker reports pool reachability and statistics.
type DatabaseHealthChecker struct {
	pool *pgxpool.Pool
}

// NewDatabaseHealthChecker creates a new health checker.
func NewDatabaseHealthChecker(pool *pgxpool.Pool) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{pool: pool}
}

// Ping returns an error if the database cannot be reached.
func (h *DatabaseHealthChecker) Ping(ctx context.Context) error {
	if h.pool == nil {
		return ErrConnectionFailed
	}
	return h.pool.Ping(ctx)
}

// PoolUsage returns the acquired and total connection counts of the pool.
func (h *DatabaseHealthChecker) PoolUsage() (acquired, total int32) {
	if h.pool == nil {
		return 0, 0
	}
	stats := h.pool.Stat()
	return stats.AcquiredConns(), stats.TotalConns()
}
