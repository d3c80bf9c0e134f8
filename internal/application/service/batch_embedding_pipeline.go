package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/logging"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
	"github.com/let-userName-Brian/exempla-ai/internal/port/outbound"
)

// Run outcomes reported to metrics.
const (
	RunOutcomeCompleted   = "completed"
	RunOutcomeInterrupted = "interrupted"
	RunOutcomeFailed      = "failed"
)

// RecordPreparer builds the point id, summary and metadata for one record.
type RecordPreparer interface {
	Prepare(kind valueobject.RecordKind, record entity.InventoryRecord) (entity.PreparedPoint, error)
}

// BatchEmbedder returns one vector per text, in order.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) [][]float32
}

// PointUpserter persists aligned ids, vectors and payloads.
type PointUpserter interface {
	BatchUpsert(ctx context.Context, ids []string, vectors [][]float32, payloads []map[string]any) error
}

// PipelineConfig sizes batches and the worker pool.
type PipelineConfig struct {
	BatchSize     int
	Workers       int
	ProgressEvery int
}

// DefaultPipelineConfig returns batches of 20, 4 workers and a status write every 5 batches.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{BatchSize: 20, Workers: 4, ProgressEvery: 5}
}

// BatchResult counts the records a batch embedded and skipped.
type BatchResult struct {
	Processed int
	Skipped   int
}

// Add sums two results.
func (r BatchResult) Add(other BatchResult) BatchResult {
	return BatchResult{Processed: r.Processed + other.Processed, Skipped: r.Skipped + other.Skipped}
}

// Total returns processed plus skipped.
func (r BatchResult) Total() int {
	return r.Processed + r.Skipped
}

type batchOutcome struct {
	result BatchResult
	err    error
}

// BatchEmbeddingPipeline embeds every VM and host record of a dataset and
// tracks the run in the dataset's status record.
type BatchEmbeddingPipeline struct {
	inventory outbound.InventoryRepository
	statuses  outbound.EmbeddingStatusRepository
	publisher outbound.StatusPublisher
	preparer  RecordPreparer
	embedder  BatchEmbedder
	upserter  PointUpserter
	shutdown  ShutdownSignal
	config    PipelineConfig
	metrics   *PipelineMetrics
}

// NewBatchEmbeddingPipeline wires a pipeline. publisher may be nil.
func NewBatchEmbeddingPipeline(
	inventory outbound.InventoryRepository,
	statuses outbound.EmbeddingStatusRepository,
	publisher outbound.StatusPublisher,
	preparer RecordPreparer,
	embedder BatchEmbedder,
	upserter PointUpserter,
	shutdown ShutdownSignal,
	config PipelineConfig,
) *BatchEmbeddingPipeline {
	if inventory == nil {
		panic("inventory cannot be nil")
	}
	if statuses == nil {
		panic("statuses cannot be nil")
	}
	if preparer == nil || embedder == nil || upserter == nil {
		panic("preparer, embedder and upserter cannot be nil")
	}
	if shutdown == nil {
		panic("shutdown cannot be nil")
	}

	defaults := DefaultPipelineConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = defaults.ProgressEvery
	}

	return &BatchEmbeddingPipeline{
		inventory: inventory,
		statuses:  statuses,
		publisher: publisher,
		preparer:  preparer,
		embedder:  embedder,
		upserter:  upserter,
		shutdown:  shutdown,
		config:    config,
	}
}

// WithMetrics records batch and run metrics.
func (p *BatchEmbeddingPipeline) WithMetrics(metrics *PipelineMetrics) *BatchEmbeddingPipeline {
	p.metrics = metrics
	return p
}

// Run embeds the dataset from a fresh pending record. Outcomes surface only
// through the status record.
func (p *BatchEmbeddingPipeline) Run(ctx context.Context, datasetID int64) {
	p.RunWithRecord(ctx, entity.NewEmbeddingStatusRecord(datasetID))
}

// RunWithRecord embeds the dataset tracked by a pending record. The record
// ends in exactly one terminal state.
func (p *BatchEmbeddingPipeline) RunWithRecord(ctx context.Context, record *entity.EmbeddingStatusRecord) {
	ctx = logging.WithDatasetID(ctx, record.DatasetID())
	run := &pipelineRun{pipeline: p, record: record, startedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			slogger.Error(ctx, "Embedding run panicked", slogger.Fields{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			run.finish(ctx, RunOutcomeFailed, fmt.Errorf("unexpected panic: %v", r))
		}
	}()

	outcome, err := run.execute(ctx)
	run.finish(ctx, outcome, err)
}

// pipelineRun holds the state of one Run call. Only the goroutine calling
// RunWithRecord touches it.
type pipelineRun struct {
	pipeline  *BatchEmbeddingPipeline
	record    *entity.EmbeddingStatusRecord
	totals    BatchResult
	startedAt time.Time
	finished  bool
}

func (r *pipelineRun) execute(ctx context.Context) (string, error) {
	p := r.pipeline

	if err := r.record.Start(); err != nil {
		return RunOutcomeFailed, err
	}
	p.writeStatus(ctx, r.record)

	if p.shutdown.ShouldShutdown() {
		return RunOutcomeInterrupted, domain.ErrInterrupted
	}

	vms, err := p.inventory.FindByDataset(ctx, r.record.DatasetID(), valueobject.RecordKindVM)
	if err != nil {
		return RunOutcomeFailed, fmt.Errorf("fetch VM records: %w", err)
	}
	hosts, err := p.inventory.FindByDataset(ctx, r.record.DatasetID(), valueobject.RecordKindHost)
	if err != nil {
		return RunOutcomeFailed, fmt.Errorf("fetch host records: %w", err)
	}

	if err := r.record.SetTotals(len(vms), len(hosts)); err != nil {
		return RunOutcomeFailed, err
	}
	p.writeStatus(ctx, r.record)
	slogger.Info(ctx, "Starting embedding run", slogger.Fields{
		"vm_count":   len(vms),
		"host_count": len(hosts),
		"batch_size": p.config.BatchSize,
		"workers":    p.config.Workers,
	})

	for _, phase := range []struct {
		kind    valueobject.RecordKind
		records []entity.InventoryRecord
	}{
		{valueobject.RecordKindVM, vms},
		{valueobject.RecordKindHost, hosts},
	} {
		if err := r.runKind(ctx, phase.kind, phase.records); err != nil {
			if domain.IsInterrupted(err) {
				return RunOutcomeInterrupted, err
			}
			return RunOutcomeFailed, err
		}
	}
	return RunOutcomeCompleted, nil
}

// runKind processes one record kind with a bounded worker pool. Results are
// aggregated in submission order so every status write reflects a prefix of
// the kind's batches.
func (r *pipelineRun) runKind(ctx context.Context, kind valueobject.RecordKind, records []entity.InventoryRecord) error {
	p := r.pipeline
	batches := partition(records, p.config.BatchSize)
	if len(batches) == 0 {
		return nil
	}

	outcomes := make([]chan batchOutcome, len(batches))
	for i := range outcomes {
		outcomes[i] = make(chan batchOutcome, 1)
	}

	var stop atomic.Bool
	g := new(errgroup.Group)
	g.SetLimit(p.config.Workers)
	submitted := make(chan struct{})

	go func() {
		defer close(submitted)
		for i, batch := range batches {
			if stop.Load() || p.shutdown.ShouldShutdown() {
				outcomes[i] <- batchOutcome{err: domain.ErrInterrupted}
				continue
			}
			g.Go(func() error {
				outcomes[i] <- p.safeProcessBatch(ctx, kind, i, batch)
				return nil
			})
		}
	}()

	var runErr error
	for i := range batches {
		outcome := <-outcomes[i]
		if domain.IsInterrupted(outcome.err) {
			runErr = outcome.err
			stop.Store(true)
			break
		}
		if outcome.err != nil {
			slogger.ErrorWithError(ctx, outcome.err, "Batch failed, counting it as skipped", slogger.Fields{
				"record_kind": kind.String(),
				"batch_index": i,
				"batch_size":  len(batches[i]),
			})
			outcome.result = BatchResult{Skipped: len(batches[i])}
		}

		r.totals = r.totals.Add(outcome.result)
		if i%p.config.ProgressEvery == 0 || i == len(batches)-1 {
			r.writeProgress(ctx, kind, i, len(batches))
		}
	}

	<-submitted
	_ = g.Wait()

	if runErr != nil {
		r.collectFinished(ctx, outcomes, batches)
	}
	return runErr
}

// collectFinished counts batches that completed after the interruption was
// observed, so written points are reflected in the final counts.
func (r *pipelineRun) collectFinished(ctx context.Context, outcomes []chan batchOutcome, batches [][]entity.InventoryRecord) {
	for i := range outcomes {
		select {
		case outcome := <-outcomes[i]:
			switch {
			case domain.IsInterrupted(outcome.err):
			case outcome.err != nil:
				r.totals = r.totals.Add(BatchResult{Skipped: len(batches[i])})
			default:
				r.totals = r.totals.Add(outcome.result)
			}
		default:
		}
	}
	slogger.Info(ctx, "Collected batches finished during interruption", slogger.Fields{
		"processed": r.totals.Processed,
		"skipped":   r.totals.Skipped,
	})
}

func (r *pipelineRun) writeProgress(ctx context.Context, kind valueobject.RecordKind, index, count int) {
	if err := r.record.RecordProgress(r.totals.Processed, r.totals.Skipped); err != nil {
		slogger.ErrorWithError(ctx, err, "Could not record progress", slogger.Fields{
			"record_kind": kind.String(),
			"batch_index": index,
		})
		return
	}
	slogger.Info(ctx, fmt.Sprintf("%s batch %d/%d done", kind.Label(), index+1, count), slogger.Fields{
		"processed": r.totals.Processed,
		"skipped":   r.totals.Skipped,
		"progress":  r.record.Progress(),
	})
	r.pipeline.writeStatus(ctx, r.record)
}

// finish moves the record to its terminal state once.
func (r *pipelineRun) finish(ctx context.Context, outcome string, err error) {
	if r.finished {
		return
	}
	r.finished = true

	var transitionErr error
	switch outcome {
	case RunOutcomeCompleted:
		transitionErr = r.record.Complete(r.totals.Processed, r.totals.Skipped)
	case RunOutcomeInterrupted:
		if r.record.Status() == valueobject.EmbeddingStatusProcessing {
			_ = r.record.RecordProgress(r.totals.Processed, r.totals.Skipped)
		}
		transitionErr = r.record.Interrupt(interruptReason(err))
	default:
		outcome = RunOutcomeFailed
		transitionErr = r.record.Fail(failureReason(err))
	}
	if transitionErr != nil {
		slogger.ErrorWithError(ctx, transitionErr, "Could not finalize embedding status", slogger.Fields{
			"outcome": outcome,
			"status":  r.record.Status().String(),
		})
		if !r.record.Status().IsTerminal() {
			_ = r.record.Fail(transitionErr.Error())
			outcome = RunOutcomeFailed
		}
	}

	r.pipeline.writeStatus(ctx, r.record)
	r.pipeline.metrics.RecordRun(ctx, outcome, time.Since(r.startedAt))

	fields := slogger.Fields{
		"outcome":   outcome,
		"processed": r.totals.Processed,
		"skipped":   r.totals.Skipped,
		"total":     r.record.TotalItems(),
		"duration":  time.Since(r.startedAt).String(),
	}
	if err != nil && outcome != RunOutcomeCompleted {
		slogger.ErrorWithError(ctx, err, "Embedding run ended early", fields)
		return
	}
	slogger.Info(ctx, "Embedding run finished", fields)
}

func interruptReason(err error) string {
	if err == nil || errors.Is(err, domain.ErrInterrupted) {
		return common.InterruptedByShutdown
	}
	return err.Error()
}

func failureReason(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func (p *BatchEmbeddingPipeline) safeProcessBatch(
	ctx context.Context,
	kind valueobject.RecordKind,
	index int,
	records []entity.InventoryRecord,
) (outcome batchOutcome) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = batchOutcome{err: fmt.Errorf("batch %d panicked: %v", index, r)}
		}
		if !domain.IsInterrupted(outcome.err) {
			p.metrics.RecordBatch(ctx, kind.String(), outcome.result, time.Since(started), outcome.err)
		}
	}()

	result, err := p.processBatch(ctx, kind, index, records)
	return batchOutcome{result: result, err: err}
}

// processBatch prepares, embeds and upserts one batch. Records that cannot be
// prepared are skipped; only an interruption aborts the batch early.
func (p *BatchEmbeddingPipeline) processBatch(
	ctx context.Context,
	kind valueobject.RecordKind,
	index int,
	records []entity.InventoryRecord,
) (BatchResult, error) {
	if p.shutdown.ShouldShutdown() {
		return BatchResult{}, domain.ErrInterrupted
	}

	ids := make([]string, 0, len(records))
	summaries := make([]string, 0, len(records))
	payloads := make([]map[string]any, 0, len(records))
	skipped := 0

	for position, record := range records {
		point, err := p.preparer.Prepare(kind, record)
		if err != nil {
			skipped++
			slogger.Warn(ctx, "Skipping record that could not be prepared", slogger.Fields{
				"record_kind": kind.String(),
				"batch_index": index,
				"position":    position,
				"error":       err.Error(),
			})
			continue
		}
		ids = append(ids, point.ID)
		summaries = append(summaries, point.Summary)
		payloads = append(payloads, point.Metadata)
	}

	if len(ids) == 0 {
		return BatchResult{Skipped: skipped}, nil
	}

	vectors := p.embedder.BatchEmbed(ctx, summaries)
	if err := p.upserter.BatchUpsert(ctx, ids, vectors, payloads); err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Processed: len(ids), Skipped: skipped}, nil
}

// writeStatus persists and publishes the record. Failures are logged only.
func (p *BatchEmbeddingPipeline) writeStatus(ctx context.Context, record *entity.EmbeddingStatusRecord) {
	if err := p.statuses.Save(ctx, record); err != nil {
		slogger.ErrorWithError(ctx, err, "Failed to write embedding status", slogger.Fields{
			"status": record.Status().String(),
		})
	}
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishStatus(ctx, record.Snapshot()); err != nil {
		slogger.Warn(ctx, "Failed to publish embedding status", slogger.Fields{
			"status": record.Status().String(),
			"error":  err.Error(),
		})
	}
}

func partition(records []entity.InventoryRecord, size int) [][]entity.InventoryRecord {
	batches := make([][]entity.InventoryRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		batches = append(batches, records[start:min(start+size, len(records))])
	}
	return batches
}
