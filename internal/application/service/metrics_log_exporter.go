package service

import (
	"context"
	"sync/atomic"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
)

// MetricsLogExporter is an sdkmetric.Exporter that writes each collection as
// one structured log line, one field per instrument.
type MetricsLogExporter struct {
	stopped atomic.Bool
}

// NewMetricsLogExporter creates a log exporter.
func NewMetricsLogExporter() *MetricsLogExporter {
	return &MetricsLogExporter{}
}

// NewMetricsLogReader wraps a log exporter in a periodic reader.
func NewMetricsLogReader(exporter sdkmetric.Exporter, interval time.Duration) sdkmetric.Reader {
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
}

// Temporality reports cumulative totals, so every line shows values since start.
func (e *MetricsLogExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(kind)
}

// Aggregation uses the SDK defaults.
func (e *MetricsLogExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

// Export logs the collected metrics. Empty collections are not logged.
func (e *MetricsLogExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if e.stopped.Load() {
		return sdkmetric.ErrExporterShutdown
	}
	fields := SummarizeMetrics(rm)
	if len(fields) == 0 {
		return nil
	}
	slogger.Info(ctx, "Metrics snapshot", fields)
	return nil
}

// ForceFlush has nothing buffered to flush.
func (e *MetricsLogExporter) ForceFlush(context.Context) error {
	return nil
}

// Shutdown stops later exports.
func (e *MetricsLogExporter) Shutdown(context.Context) error {
	e.stopped.Store(true)
	return nil
}

// SummarizeMetrics flattens rm into log fields: sums and gauges by name,
// histograms as <name>_count and <name>_sum. Data points across attribute
// sets are added together.
func SummarizeMetrics(rm *metricdata.ResourceMetrics) slogger.Fields {
	fields := slogger.Fields{}
	if rm == nil {
		return fields
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fields[m.Name] = total
			case metricdata.Sum[float64]:
				var total float64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fields[m.Name] = total
			case metricdata.Gauge[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fields[m.Name] = total
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				fields[m.Name+"_count"] = count
				fields[m.Name+"_sum"] = sum
			}
		}
	}
	return fields
}
