// Package messaging publishes embedding status events to NATS JetStream.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/config"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
)

const (
	// NATS connection timeout.
	natsConnectionTimeoutSeconds = 5

	// Stream configuration.
	streamMaxAgeHours = 24

	defaultStreamName    = "EMBEDDING_STATUS"
	defaultSubjectPrefix = "embedding.status"
)

// ConnectionHealthStatus represents the health status of the NATS connection.
type ConnectionHealthStatus struct {
	Connected        bool   `json:"connected"`
	JetStreamEnabled bool   `json:"jetstream_enabled"`
	LastError        string `json:"last_error,omitempty"`
	Uptime           string `json:"uptime"`
	Reconnects       int    `json:"reconnects"`
}

// MessageMetrics tracks message publishing metrics.
type MessageMetrics struct {
	PublishedCount    int64         `json:"published_count"`
	FailedCount       int64         `json:"failed_count"`
	AverageLatency    time.Duration `json:"average_latency"`
	LastPublishedTime time.Time     `json:"last_published_time"`
}

// StatusEventMessage is the JSON body of a status event.
type StatusEventMessage struct {
	MessageID string                         `json:"message_id"`
	Timestamp time.Time                      `json:"timestamp"`
	Status    entity.EmbeddingStatusSnapshot `json:"status"`
}

// jetStreamPublisher is the subset of nats.JetStreamContext used for publishing.
type jetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// NATSStatusPublisher implements outbound.StatusPublisher on JetStream.
// Every status write of a run is published to <prefix>.<dataset id>.
type NATSStatusPublisher struct {
	config        config.NATSConfig
	streamName    string
	subjectPrefix string

	conn *nats.Conn
	js   jetStreamPublisher

	mutex          sync.RWMutex
	isConnected    bool
	connectedAt    time.Time
	reconnectCount int
	lastError      error
	messageMetrics MessageMetrics

	// Circuit breaker state
	circuitBreakerOpen bool
	lastFailureTime    time.Time
	failureCount       int
}

// NewNATSStatusPublisher validates cfg and creates an unconnected publisher.
func NewNATSStatusPublisher(cfg config.NATSConfig) (*NATSStatusPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if !strings.HasPrefix(cfg.URL, "nats://") && !strings.HasPrefix(cfg.URL, "tls://") {
		return nil, errors.New("invalid NATS URL scheme")
	}
	if cfg.MaxReconnects < 0 {
		return nil, errors.New("max reconnects cannot be negative")
	}
	if cfg.ReconnectWait < 0 {
		return nil, errors.New("reconnect wait cannot be negative")
	}

	streamName := cfg.Stream
	if streamName == "" {
		streamName = defaultStreamName
	}
	prefix := strings.TrimSuffix(cfg.SubjectPrefix, ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}

	return &NATSStatusPublisher{
		config:        cfg,
		streamName:    streamName,
		subjectPrefix: prefix,
	}, nil
}

// Subject returns the subject a dataset's events are published to.
func (n *NATSStatusPublisher) Subject(datasetID int64) string {
	return n.subjectPrefix + "." + strconv.FormatInt(datasetID, 10)
}

// Connect establishes the connection and JetStream context.
func (n *NATSStatusPublisher) Connect() error {
	opts := []nats.Option{
		nats.Name("exempla-status-publisher"),
		nats.MaxReconnects(n.config.MaxReconnects),
		nats.ReconnectWait(n.config.ReconnectWait),
		nats.Timeout(natsConnectionTimeoutSeconds * time.Second),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			n.mutex.Lock()
			n.reconnectCount++
			n.mutex.Unlock()
			n.updateConnectionHealth(true, nil)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				err = errors.New("connection lost")
			}
			n.updateConnectionHealth(false, err)
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.updateConnectionHealth(false, err)
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		n.updateConnectionHealth(false, err)
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	n.mutex.Lock()
	n.conn = conn
	n.js = js
	n.mutex.Unlock()
	n.updateConnectionHealth(true, nil)
	return nil
}

// Disconnect drains and closes the NATS connection.
func (n *NATSStatusPublisher) Disconnect() error {
	n.mutex.Lock()
	conn := n.conn
	n.conn = nil
	n.js = nil
	n.mutex.Unlock()

	var err error
	if conn != nil {
		err = conn.Drain()
	}
	n.updateConnectionHealth(false, nil)
	return err
}

// EnsureStream creates the status stream if it doesn't exist.
func (n *NATSStatusPublisher) EnsureStream() error {
	n.mutex.RLock()
	js := n.js
	n.mutex.RUnlock()
	if js == nil {
		return errors.New("not connected to NATS server")
	}

	streamConfig := &nats.StreamConfig{
		Name:      n.streamName,
		Subjects:  []string{n.subjectPrefix + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    streamMaxAgeHours * time.Hour,
		// Consumers only need the latest status per dataset.
		MaxMsgsPerSubject: 1,
		Replicas:          1,
	}

	if _, err := js.AddStream(streamConfig); err != nil {
		if _, streamErr := js.StreamInfo(n.streamName); streamErr == nil {
			return nil
		}
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishStatus publishes a status snapshot for its dataset.
func (n *NATSStatusPublisher) PublishStatus(ctx context.Context, snapshot entity.EmbeddingStatusSnapshot) error {
	start := time.Now()

	select {
	case <-ctx.Done():
		n.updateMetrics(false, time.Since(start))
		return ctx.Err()
	default:
	}

	if n.isCircuitBreakerOpen() {
		n.updateMetrics(false, time.Since(start))
		return errors.New("circuit breaker open: too many recent failures")
	}

	n.mutex.RLock()
	js := n.js
	n.mutex.RUnlock()
	if js == nil {
		n.updateMetrics(false, time.Since(start))
		return errors.New("publish failed: not connected to NATS")
	}

	msg := StatusEventMessage{
		MessageID: uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Status:    snapshot,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		n.updateMetrics(false, time.Since(start))
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := js.Publish(n.Subject(snapshot.DatasetID), data,
		nats.Context(ctx), nats.MsgId(msg.MessageID)); err != nil {
		n.updateMetrics(false, time.Since(start))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	n.updateMetrics(true, time.Since(start))
	slogger.Debug(ctx, "Published embedding status", slogger.Fields{
		"dataset_id": snapshot.DatasetID,
		"status":     snapshot.Status.String(),
		"progress":   snapshot.Progress,
	})
	return nil
}

// GetConnectionHealth returns the current connection health status.
func (n *NATSStatusPublisher) GetConnectionHealth() ConnectionHealthStatus {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	status := ConnectionHealthStatus{
		Connected:        n.isConnected,
		JetStreamEnabled: n.js != nil,
		Reconnects:       n.reconnectCount,
		Uptime:           "0s",
	}
	if n.isConnected {
		status.Uptime = time.Since(n.connectedAt).Truncate(time.Second).String()
	}
	if n.lastError != nil {
		status.LastError = n.lastError.Error()
	}
	return status
}

// GetMessageMetrics returns current message publishing metrics.
func (n *NATSStatusPublisher) GetMessageMetrics() MessageMetrics {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.messageMetrics
}

func (n *NATSStatusPublisher) updateConnectionHealth(connected bool, err error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.isConnected = connected
	if err != nil {
		n.lastError = err
	}
	if connected && n.connectedAt.IsZero() {
		n.connectedAt = time.Now()
	}
	if !connected {
		n.connectedAt = time.Time{}
	}
}

// updateMetrics updates message publishing metrics.
func (n *NATSStatusPublisher) updateMetrics(success bool, latency time.Duration) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if success {
		n.messageMetrics.PublishedCount++
		n.messageMetrics.LastPublishedTime = time.Now()

		// EMA with alpha = 0.1
		if n.messageMetrics.AverageLatency == 0 {
			n.messageMetrics.AverageLatency = latency
		} else {
			n.messageMetrics.AverageLatency = time.Duration(
				0.9*float64(n.messageMetrics.AverageLatency) + 0.1*float64(latency),
			)
		}
		n.updateCircuitBreaker(true)
	} else {
		n.messageMetrics.FailedCount++
		n.updateCircuitBreaker(false)
	}
}

// updateCircuitBreaker must be called with the mutex held.
func (n *NATSStatusPublisher) updateCircuitBreaker(success bool) {
	const maxFailures = 3

	if success {
		n.failureCount = 0
		n.circuitBreakerOpen = false
		return
	}

	n.failureCount++
	n.lastFailureTime = time.Now()
	if n.failureCount >= maxFailures {
		n.circuitBreakerOpen = true
	}
}

// isCircuitBreakerOpen closes the breaker again once it has been open long enough.
func (n *NATSStatusPublisher) isCircuitBreakerOpen() bool {
	const circuitOpenDuration = 30 * time.Second

	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.circuitBreakerOpen && time.Since(n.lastFailureTime) > circuitOpenDuration {
		n.circuitBreakerOpen = false
		n.failureCount = 0
	}
	return n.circuitBreakerOpen
}

// ResetCircuitBreaker resets the circuit breaker state.
func (n *NATSStatusPublisher) ResetCircuitBreaker() {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.circuitBreakerOpen = false
	n.failureCount = 0
	n.lastFailureTime = time.Time{}
}

// NoopStatusPublisher discards status events when NATS is disabled.
type NoopStatusPublisher struct{}

// PublishStatus does nothing.
func (NoopStatusPublisher) PublishStatus(context.Context, entity.EmbeddingStatusSnapshot) error {
	return nil
}
