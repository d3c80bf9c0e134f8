package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxWait      = 30 * time.Minute
)

// Polling outcomes other than completion.
var (
	ErrEmbeddingFailed      = errors.New("dataset embedding failed")
	ErrEmbeddingInterrupted = errors.New("dataset embedding interrupted")
	ErrEmbeddingNotFound    = errors.New("no embedding process found for dataset")
	ErrPollingTimeout       = errors.New("polling timeout exceeded")
)

// PollerConfig configures a Poller. Zero values use the defaults.
type PollerConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// Poller polls a dataset's embedding status until it reaches a terminal state.
type Poller struct {
	client   *Client
	interval time.Duration
	maxWait  time.Duration
}

// NewPoller creates a Poller. config may be nil.
func NewPoller(client *Client, config *PollerConfig) (*Poller, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}

	p := &Poller{client: client, interval: DefaultPollInterval, maxWait: DefaultMaxWait}
	if config != nil {
		if config.Interval > 0 {
			p.interval = config.Interval
		}
		if config.MaxWait > 0 {
			p.maxWait = config.MaxWait
		}
	}
	return p, nil
}

// WaitForCompletion polls until the run completes, fails or is interrupted.
// Each non-terminal poll writes one JSON progress line to progressWriter:
//
//	{"status":"polling","dataset_id":7,"current_status":"processing","progress":40,"elapsed":"4s","poll_count":2}
//
// Transient request errors are retried until maxWait.
func (p *Poller) WaitForCompletion(
	ctx context.Context,
	datasetID int64,
	progressWriter io.Writer,
) (*dto.EmbeddingStatusResponse, error) {
	start := time.Now()
	pollCount := 0
	var last *dto.EmbeddingStatusResponse

	for {
		status, err := p.client.GetEmbeddingStatus(ctx, datasetID)
		if err == nil {
			last = status
			switch status.Status {
			case valueobject.EmbeddingStatusCompleted:
				return status, nil
			case valueobject.EmbeddingStatusFailed:
				return status, ErrEmbeddingFailed
			case valueobject.EmbeddingStatusInterrupted:
				return status, ErrEmbeddingInterrupted
			case valueobject.EmbeddingStatusNotFound:
				return status, ErrEmbeddingNotFound
			}
		}

		pollCount++
		elapsed := time.Since(start)
		writeProgress(progressWriter, datasetID, last, elapsed, pollCount)

		if elapsed >= p.maxWait {
			return last, ErrPollingTimeout
		}

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(p.interval):
		}
	}
}

func writeProgress(w io.Writer, datasetID int64, last *dto.EmbeddingStatusResponse, elapsed time.Duration, pollCount int) {
	if w == nil {
		return
	}
	progress := map[string]any{
		"status":     "polling",
		"dataset_id": datasetID,
		"elapsed":    elapsed.Round(time.Millisecond).String(),
		"poll_count": pollCount,
	}
	if last != nil {
		progress["current_status"] = last.Status
		if last.Progress != nil {
			progress["progress"] = *last.Progress
		}
	}
	_ = json.NewEncoder(w).Encode(progress)
}
