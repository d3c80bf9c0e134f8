package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Metric names following OpenTelemetry semantic conventions.
const (
	BatchCounterName             = "embedding_batches_total"
	BatchDurationHistogramName   = "embedding_batch_duration_seconds"
	ItemCounterName              = "embedding_items_total"
	EmbedAttemptCounterName      = "embedding_requests_total"
	EmbedFallbackCounterName     = "embedding_zero_vector_fallbacks_total"
	UpsertChunkCounterName       = "embedding_upsert_chunks_total"
	RunCounterName               = "embedding_runs_total"
	RunDurationHistogramName     = "embedding_run_duration_seconds"
	ActiveTasksGaugeName         = "embedding_active_tasks"
	ChatRequestCounterName       = "chat_requests_total"
	ChatRequestDurationHistogram = "chat_request_duration_seconds"
)

// Common attribute keys for consistent labeling.
const (
	AttrRecordKind = "record_kind"
	AttrResult     = "result"
	AttrOutcome    = "outcome"
	AttrReason     = "reason"
)

func getBatchDurationBuckets() []float64 {
	return []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
}

func getRunDurationBuckets() []float64 {
	return []float64{1, 10, 60, 300, 900, 1800, 3600, 7200}
}

// PipelineMetrics provides OpenTelemetry-based metrics for embedding runs.
// A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	batchCounter      metric.Int64Counter
	batchDuration     metric.Float64Histogram
	itemCounter       metric.Int64Counter
	embedAttempts     metric.Int64Counter
	embedFallbacks    metric.Int64Counter
	upsertChunks      metric.Int64Counter
	runCounter        metric.Int64Counter
	runDuration       metric.Float64Histogram
	activeTasks       metric.Int64Gauge
	chatRequests      metric.Int64Counter
	chatRequestTiming metric.Float64Histogram
}

// NewMeterProvider builds an SDK meter provider tagged with the service
// identity and installs it as the global provider.
func NewMeterProvider(ctx context.Context, serviceName, serviceVersion string, reader sdkmetric.Reader) (*sdkmetric.MeterProvider, error) {
	if serviceName == "" {
		return nil, errors.New("service name cannot be empty")
	}
	if reader == nil {
		reader = sdkmetric.NewManualReader()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(provider)
	return provider, nil
}

// NewPipelineMetrics creates metrics on the global meter provider.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	return NewPipelineMetricsWithProvider(otel.GetMeterProvider())
}

// NewPipelineMetricsWithProvider creates metrics on a specific meter provider.
func NewPipelineMetricsWithProvider(provider metric.MeterProvider) (*PipelineMetrics, error) {
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}
	meter := provider.Meter("exempla-ai/embedding", metric.WithInstrumentationVersion("1.0.0"))

	m := &PipelineMetrics{}
	var err error
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.batchCounter, BatchCounterName, "Embedding batches processed"},
		{&m.itemCounter, ItemCounterName, "Inventory records embedded or skipped"},
		{&m.embedAttempts, EmbedAttemptCounterName, "Calls made to the embedding provider"},
		{&m.embedFallbacks, EmbedFallbackCounterName, "Zero vectors returned instead of a real embedding"},
		{&m.upsertChunks, UpsertChunkCounterName, "Vector upsert chunks attempted"},
		{&m.runCounter, RunCounterName, "Embedding runs finished by outcome"},
		{&m.chatRequests, ChatRequestCounterName, "Chat requests served"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1")); err != nil {
			return nil, err
		}
	}

	if m.batchDuration, err = meter.Float64Histogram(
		BatchDurationHistogramName,
		metric.WithDescription("Duration of one embedding batch in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(getBatchDurationBuckets()...),
	); err != nil {
		return nil, err
	}
	if m.runDuration, err = meter.Float64Histogram(
		RunDurationHistogramName,
		metric.WithDescription("Duration of a full dataset embedding run in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(getRunDurationBuckets()...),
	); err != nil {
		return nil, err
	}
	if m.chatRequestTiming, err = meter.Float64Histogram(
		ChatRequestDurationHistogram,
		metric.WithDescription("Duration of chat requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(getBatchDurationBuckets()...),
	); err != nil {
		return nil, err
	}
	if m.activeTasks, err = meter.Int64Gauge(
		ActiveTasksGaugeName,
		metric.WithDescription("Embedding tasks currently registered"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordBatch records one finished batch.
func (m *PipelineMetrics) RecordBatch(ctx context.Context, kind string, result BatchResult, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	kindAttr := attribute.String(AttrRecordKind, kind)
	m.batchCounter.Add(ctx, 1, metric.WithAttributes(kindAttr, attribute.String(AttrResult, outcome)))
	m.batchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(kindAttr))
	if result.Processed > 0 {
		m.itemCounter.Add(ctx, int64(result.Processed), metric.WithAttributes(kindAttr, attribute.String(AttrResult, "processed")))
	}
	if result.Skipped > 0 {
		m.itemCounter.Add(ctx, int64(result.Skipped), metric.WithAttributes(kindAttr, attribute.String(AttrResult, "skipped")))
	}
}

// RecordEmbedAttempt records one provider call.
func (m *PipelineMetrics) RecordEmbedAttempt(ctx context.Context, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.embedAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, outcome)))
}

// RecordEmbedFallback records a zero vector returned in place of an embedding.
func (m *PipelineMetrics) RecordEmbedFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.embedFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrReason, reason)))
}

// RecordUpsertChunk records one upsert chunk.
func (m *PipelineMetrics) RecordUpsertChunk(ctx context.Context, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.upsertChunks.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, outcome)))
}

// RecordRun records the terminal outcome of a run.
func (m *PipelineMetrics) RecordRun(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrOutcome, outcome))
	m.runCounter.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordActiveTasks records the size of the task registry.
func (m *PipelineMetrics) RecordActiveTasks(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.activeTasks.Record(ctx, int64(count))
}

// RecordChat records one chat request.
func (m *PipelineMetrics) RecordChat(ctx context.Context, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String(AttrResult, outcome))
	m.chatRequests.Add(ctx, 1, attrs)
	m.chatRequestTiming.Record(ctx, duration.Seconds(), attrs)
}
