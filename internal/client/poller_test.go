package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

func statusAt(status valueobject.EmbeddingStatus, progress int) dto.EmbeddingStatusResponse {
	return dto.EmbeddingStatusResponse{DatasetID: 3, Status: status, Progress: &progress}
}

// sequenceHandler serves each status in turn, repeating the last one.
func sequenceHandler(statuses ...dto.EmbeddingStatusResponse) (http.HandlerFunc, *atomic.Int32) {
	var calls atomic.Int32
	return func(w http.ResponseWriter, _ *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		writeJSON(w, http.StatusOK, statuses[i])
	}, &calls
}

func fastPoller(t *testing.T, c *Client, maxWait time.Duration) *Poller {
	t.Helper()
	p, err := NewPoller(c, &PollerConfig{Interval: time.Millisecond, MaxWait: maxWait})
	require.NoError(t, err)
	return p
}

func TestNewPoller(t *testing.T) {
	t.Run("should reject nil client", func(t *testing.T) {
		_, err := NewPoller(nil, nil)
		require.Error(t, err)
	})

	t.Run("should apply defaults", func(t *testing.T) {
		p, err := NewPoller(&Client{}, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultPollInterval, p.interval)
		assert.Equal(t, DefaultMaxWait, p.maxWait)
	})
}

func TestPoller_WaitForCompletion(t *testing.T) {
	t.Run("should return once the run completes", func(t *testing.T) {
		handler, calls := sequenceHandler(
			statusAt(valueobject.EmbeddingStatusPending, 0),
			statusAt(valueobject.EmbeddingStatusProcessing, 40),
			statusAt(valueobject.EmbeddingStatusCompleted, 100),
		)
		p := fastPoller(t, newTestClient(t, handler), time.Minute)

		var progress bytes.Buffer
		status, err := p.WaitForCompletion(context.Background(), 3, &progress)
		require.NoError(t, err)
		assert.Equal(t, valueobject.EmbeddingStatusCompleted, status.Status)
		assert.Equal(t, int32(3), calls.Load())
		assert.Contains(t, progress.String(), `"current_status":"processing"`)
		assert.Contains(t, progress.String(), `"progress":40`)
	})

	tests := []struct {
		name     string
		terminal valueobject.EmbeddingStatus
		wantErr  error
	}{
		{"should report failure", valueobject.EmbeddingStatusFailed, ErrEmbeddingFailed},
		{"should report interruption", valueobject.EmbeddingStatusInterrupted, ErrEmbeddingInterrupted},
		{"should report an unknown dataset", valueobject.EmbeddingStatusNotFound, ErrEmbeddingNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := sequenceHandler(statusAt(tt.terminal, 0))
			p := fastPoller(t, newTestClient(t, handler), time.Minute)

			status, err := p.WaitForCompletion(context.Background(), 3, nil)
			assert.True(t, errors.Is(err, tt.wantErr))
			require.NotNil(t, status)
			assert.Equal(t, tt.terminal, status.Status)
		})
	}

	t.Run("should time out on a run that never finishes", func(t *testing.T) {
		handler, _ := sequenceHandler(statusAt(valueobject.EmbeddingStatusProcessing, 10))
		p := fastPoller(t, newTestClient(t, handler), 20*time.Millisecond)

		status, err := p.WaitForCompletion(context.Background(), 3, nil)
		assert.True(t, errors.Is(err, ErrPollingTimeout))
		require.NotNil(t, status)
		assert.Equal(t, valueobject.EmbeddingStatusProcessing, status.Status)
	})

	t.Run("should retry transient server errors", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, statusAt(valueobject.EmbeddingStatusCompleted, 100))
		})
		p := fastPoller(t, c, time.Minute)

		status, err := p.WaitForCompletion(context.Background(), 3, nil)
		require.NoError(t, err)
		assert.Equal(t, valueobject.EmbeddingStatusCompleted, status.Status)
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		handler, _ := sequenceHandler(statusAt(valueobject.EmbeddingStatusProcessing, 10))
		p, err := NewPoller(newTestClient(t, handler), &PollerConfig{Interval: time.Hour, MaxWait: time.Hour})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = p.WaitForCompletion(ctx, 3, nil)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}
