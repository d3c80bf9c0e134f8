package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/logging"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// TaskRegistry tracks running embedding tasks for shutdown draining.
type TaskRegistry interface {
	Register(task DatasetEmbeddingTask)
	Unregister(taskID string)
}

// DatasetRunner runs one dataset's embedding from a pending record.
type DatasetRunner interface {
	RunWithRecord(ctx context.Context, record *entity.EmbeddingStatusRecord)
}

// EmbeddingSubmissionService accepts embedding requests and serves status queries.
type EmbeddingSubmissionService struct {
	statuses  outbound.EmbeddingStatusRepository
	publisher outbound.StatusPublisher
	runner    DatasetRunner
	registry  TaskRegistry
	newTaskID func(datasetID int64) string
	wg        sync.WaitGroup
}

// NewEmbeddingSubmissionService creates the service. publisher may be nil.
func NewEmbeddingSubmissionService(
	statuses outbound.EmbeddingStatusRepository,
	publisher outbound.StatusPublisher,
	runner DatasetRunner,
	registry TaskRegistry,
) *EmbeddingSubmissionService {
	if statuses == nil {
		panic("statuses cannot be nil")
	}
	if runner == nil {
		panic("runner cannot be nil")
	}
	if registry == nil {
		panic("registry cannot be nil")
	}
	return &EmbeddingSubmissionService{
		statuses:  statuses,
		publisher: publisher,
		runner:    runner,
		registry:  registry,
		newTaskID: func(datasetID int64) string {
			return fmt.Sprintf(common.EmbeddingTaskIDTemplate, datasetID, uuid.New().String())
		},
	}
}

// Submit writes a pending record and starts the run in the background. The
// run is detached from ctx so it outlives the request.
func (s *EmbeddingSubmissionService) Submit(ctx context.Context, datasetID int64) (*dto.EmbedResponse, error) {
	record, task, err := s.prepare(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	status := record.Status()
	runCtx := logging.WithTaskID(context.WithoutCancel(ctx), task.ID)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx, task, record)
	}()

	return &dto.EmbedResponse{
		Message: fmt.Sprintf("Dataset %d embedding started in the background.", datasetID),
		Status:  status,
		TaskID:  task.ID,
	}, nil
}

// RunSync performs the same flow as Submit in the caller's goroutine and
// returns the final status.
func (s *EmbeddingSubmissionService) RunSync(ctx context.Context, datasetID int64) (*dto.EmbeddingStatusResponse, error) {
	record, task, err := s.prepare(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	s.run(logging.WithTaskID(ctx, task.ID), task, record)

	response := dto.NewEmbeddingStatusResponse(record)
	return &response, nil
}

// Wait blocks until every background run started by Submit has returned.
func (s *EmbeddingSubmissionService) Wait() {
	s.wg.Wait()
}

// GetStatus returns the stored record or the not_found sentinel.
func (s *EmbeddingSubmissionService) GetStatus(ctx context.Context, datasetID int64) (*dto.EmbeddingStatusResponse, error) {
	if datasetID <= 0 {
		return nil, domain.ErrInvalidDatasetID
	}

	record, err := s.statuses.FindByDatasetID(ctx, datasetID)
	if errors.Is(err, domain.ErrEmbeddingStatusNotFound) {
		response := dto.NewNotFoundStatusResponse(datasetID)
		return &response, nil
	}
	if err != nil {
		return nil, common.WrapServiceError(common.OpRetrieveEmbeddingStatus, err)
	}

	response := dto.NewEmbeddingStatusResponse(record)
	return &response, nil
}

func (s *EmbeddingSubmissionService) prepare(
	ctx context.Context,
	datasetID int64,
) (*entity.EmbeddingStatusRecord, DatasetEmbeddingTask, error) {
	if datasetID <= 0 {
		return nil, DatasetEmbeddingTask{}, domain.ErrInvalidDatasetID
	}

	record := entity.NewEmbeddingStatusRecord(datasetID)
	if err := s.statuses.Save(ctx, record); err != nil {
		return nil, DatasetEmbeddingTask{}, common.WrapServiceError(common.OpSaveEmbeddingStatus, err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishStatus(ctx, record.Snapshot()); err != nil {
			slogger.Warn(ctx, "Failed to publish embedding status", slogger.Fields{
				"dataset_id": datasetID,
				"error":      err.Error(),
			})
		}
	}

	task := DatasetEmbeddingTask{
		ID:        s.newTaskID(datasetID),
		DatasetID: datasetID,
		Kind:      TaskKindEmbedding,
		StartedAt: time.Now().UTC(),
	}
	s.registry.Register(task)

	slogger.Info(ctx, "Embedding task queued", slogger.Fields{
		"dataset_id": datasetID,
		"task_id":    task.ID,
	})
	return record, task, nil
}

func (s *EmbeddingSubmissionService) run(ctx context.Context, task DatasetEmbeddingTask, record *entity.EmbeddingStatusRecord) {
	defer s.registry.Unregister(task.ID)
	s.runner.RunWithRecord(ctx, record)
}
