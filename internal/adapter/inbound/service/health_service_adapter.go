// Package service adapts outbound infrastructure to inbound application ports.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/adapter/outbound/messaging"
	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
)

const (
	healthCacheTTL    = 5 * time.Second
	dependencyTimeout = 1 * time.Second
)

// DatabasePinger reports database reachability.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// poolUsageReporter is optionally implemented by a DatabasePinger backed by a pool.
type poolUsageReporter interface {
	PoolUsage() (acquired, total int32)
}

// PublisherHealthReporter reports the status publisher's connection health.
type PublisherHealthReporter interface {
	GetConnectionHealth() messaging.ConnectionHealthStatus
}

type cacheEntry struct {
	status    dto.DependencyStatus
	timestamp time.Time
}

// HealthServiceAdapter implements inbound.HealthService over the database and,
// when configured, the NATS status publisher. Either dependency may be nil.
type HealthServiceAdapter struct {
	database  DatabasePinger
	publisher PublisherHealthReporter
	version   string

	cacheMutex sync.Mutex
	natsCache  *cacheEntry
	now        func() time.Time
}

// NewHealthServiceAdapter creates a new HealthServiceAdapter.
func NewHealthServiceAdapter(
	database DatabasePinger,
	publisher PublisherHealthReporter,
	version string,
) *HealthServiceAdapter {
	return &HealthServiceAdapter{
		database:  database,
		publisher: publisher,
		version:   version,
		now:       time.Now,
	}
}

// GetHealth reports healthy, degraded when one dependency is down, or
// unhealthy when the database is unreachable.
func (h *HealthServiceAdapter) GetHealth(ctx context.Context) (*dto.HealthResponse, error) {
	response := &dto.HealthResponse{
		Status:       string(dto.HealthStatusHealthy),
		Timestamp:    h.now(),
		Version:      h.version,
		Dependencies: make(map[string]dto.DependencyStatus),
	}

	if h.database != nil {
		response.AddDependency("database", h.checkDatabase(ctx), true)
	}
	if h.publisher != nil {
		response.AddDependency("nats", h.cachedNATSHealth(), false)
	}

	return response, nil
}

func (h *HealthServiceAdapter) checkDatabase(ctx context.Context) dto.DependencyStatus {
	timeoutCtx, cancel := context.WithTimeout(ctx, dependencyTimeout)
	defer cancel()

	start := h.now()
	err := h.database.Ping(timeoutCtx)
	responseTime := formatResponseTime(h.now().Sub(start))
	if err != nil {
		return dto.DependencyStatus{
			Status:       string(dto.DependencyStatusUnhealthy),
			Message:      "Database connection failed",
			ResponseTime: responseTime,
		}
	}
	status := dto.DependencyStatus{
		Status:       string(dto.DependencyStatusHealthy),
		ResponseTime: responseTime,
	}
	if pool, ok := h.database.(poolUsageReporter); ok {
		acquired, total := pool.PoolUsage()
		status.Message = fmt.Sprintf("%d/%d connections in use", acquired, total)
	}
	return status
}

// cachedNATSHealth serves the NATS status from a short-lived cache.
func (h *HealthServiceAdapter) cachedNATSHealth() dto.DependencyStatus {
	h.cacheMutex.Lock()
	defer h.cacheMutex.Unlock()

	if h.natsCache != nil && h.now().Sub(h.natsCache.timestamp) < healthCacheTTL {
		return h.natsCache.status
	}

	health := h.publisher.GetConnectionHealth()
	status := dto.DependencyStatus{Status: string(dto.DependencyStatusHealthy)}
	switch {
	case !health.Connected:
		status.Status = string(dto.DependencyStatusUnhealthy)
		status.Message = "NATS disconnected"
		if health.LastError != "" {
			status.Message += ": " + health.LastError
		}
	case !health.JetStreamEnabled:
		status.Status = string(dto.DependencyStatusUnhealthy)
		status.Message = "JetStream unavailable"
	default:
		status.Message = fmt.Sprintf("connected for %s, %d reconnects", health.Uptime, health.Reconnects)
	}

	h.natsCache = &cacheEntry{status: status, timestamp: h.now()}
	return status
}

func formatResponseTime(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1e6)
}
