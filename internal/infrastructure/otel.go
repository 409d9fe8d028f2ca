package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"rfmcli/internal/config"
	"rfmcli/internal/rfm"
	"rfmcli/pkg/contracts"
	"rfmcli/pkg/contracts/domain"
)

const (
	ServiceName = "rfm-segmentation"
	MeterName   = "rfmcli"
)

// Telemetry bundles the tracer and the pipeline metrics of one process.
// Disabled signals fall back to no-op providers so callers never nil-check.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Metrics        *PipelineMetrics
	Registry       *prometheus.Registry

	traceFile   *os.File
	metricsFile string
	logger      *slog.Logger
}

// NewTelemetry initializes tracing and metrics according to cfg
func NewTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}

	t := &Telemetry{
		metricsFile: cfg.MetricsFile,
		logger:      WithComponent(logger, "telemetry"),
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(contracts.Version),
	)

	if cfg.EnableTracing {
		if err := t.initTracing(cfg.TraceFile, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	} else {
		t.Tracer = tracenoop.NewTracerProvider().Tracer(MeterName)
	}

	var meter metric.Meter
	if cfg.EnableMetrics {
		m, err := t.initMetrics(res)
		if err != nil {
			_ = t.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		meter = m
	} else {
		meter = metricnoop.NewMeterProvider().Meter(MeterName)
	}

	metrics, err := NewPipelineMetrics(meter)
	if err != nil {
		_ = t.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	t.Metrics = metrics

	t.logger.Debug("telemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return t, nil
}

// initTracing exports spans as JSON to path, or to stdout when path is empty
func (t *Telemetry) initTracing(path string, res *resource.Resource) error {
	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		t.traceFile = f
		opts = append(opts, stdouttrace.WithWriter(f))
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	t.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.Tracer = t.TracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(contracts.Version))
	return nil
}

// initMetrics registers the otel prometheus bridge on a private registry
func (t *Telemetry) initMetrics(res *resource.Resource) (metric.Meter, error) {
	t.Registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(t.Registry),
		otelprom.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	return t.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(contracts.Version)), nil
}

// Handler serves the collected metrics in the Prometheus text format.
// It returns nil when metrics are disabled.
func (t *Telemetry) Handler() http.Handler {
	if t.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}

// RegisterRuntimeCollectors adds Go runtime and process metrics to the
// registry. Long-running servers call it; one-shot runs skip it.
func (t *Telemetry) RegisterRuntimeCollectors() error {
	if t.Registry == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := t.Registry.Register(c); err != nil {
			return fmt.Errorf("failed to register runtime collector: %w", err)
		}
	}
	return nil
}

// WriteMetrics dumps the current metrics to the configured textfile, if any
func (t *Telemetry) WriteMetrics() error {
	if t.Registry == nil || t.metricsFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(t.metricsFile, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// StartStage opens a span for one pipeline stage. The returned function ends
// the span and records the stage duration; pass the stage error or nil.
func (t *Telemetry) StartStage(ctx context.Context, stage string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := t.Tracer.Start(ctx, "rfm."+stage,
		trace.WithAttributes(attribute.String("rfm.stage", stage)))
	if runID := GetRunID(ctx); runID != "" {
		span.SetAttributes(attribute.String("rfm.run_id", runID))
	}

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		t.Metrics.RecordStage(ctx, stage, status, time.Since(start))
		span.End()
	}
}

// Shutdown flushes spans, writes the metrics textfile and releases files
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.Metrics != nil {
		if err := t.WriteMetrics(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file close: %w", err))
		}
		t.traceFile = nil
	}

	return errors.Join(errs...)
}

// PipelineMetrics holds the instruments recorded by a pipeline run
type PipelineMetrics struct {
	RowsLoaded       metric.Int64Counter
	RowsDropped      metric.Int64Counter
	CustomersScored  metric.Int64Counter
	SegmentCustomers metric.Int64Gauge
	OutlierRows      metric.Int64Gauge
	StageDuration    metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsLoaded, err := meter.Int64Counter(
		"rfm_rows_loaded",
		metric.WithDescription("Transaction rows read from the input table"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"rfm_rows_dropped",
		metric.WithDescription("Transaction rows removed by the cleaner, by reason"),
	)
	if err != nil {
		return nil, err
	}

	customersScored, err := meter.Int64Counter(
		"rfm_customers_scored",
		metric.WithDescription("Customers assigned RFM scores"),
	)
	if err != nil {
		return nil, err
	}

	segmentCustomers, err := meter.Int64Gauge(
		"rfm_segment_customers",
		metric.WithDescription("Customers per segment in the latest run"),
	)
	if err != nil {
		return nil, err
	}

	outlierRows, err := meter.Int64Gauge(
		"rfm_outlier_rows",
		metric.WithDescription("Rows outside the fences per numeric feature in the latest run"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"rfm_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsLoaded:       rowsLoaded,
		RowsDropped:      rowsDropped,
		CustomersScored:  customersScored,
		SegmentCustomers: segmentCustomers,
		OutlierRows:      outlierRows,
		StageDuration:    stageDuration,
	}, nil
}

// RecordStage records one stage execution
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage, status string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordClean records the cleaner's row accounting
func (m *PipelineMetrics) RecordClean(ctx context.Context, r domain.CleanReport) {
	m.RowsLoaded.Add(ctx, int64(r.InputRows))
	m.RowsDropped.Add(ctx, int64(r.CanceledRows), metric.WithAttributes(attribute.String("reason", "canceled")))
	m.RowsDropped.Add(ctx, int64(r.IncompleteRows), metric.WithAttributes(attribute.String("reason", "incomplete")))
}

// RecordOutliers records the outlier count of every scanned feature
func (m *PipelineMetrics) RecordOutliers(ctx context.Context, r domain.OutlierReport) {
	for _, f := range r.Features {
		m.OutlierRows.Record(ctx, int64(f.Count), metric.WithAttributes(attribute.String("feature", string(f.Feature))))
	}
}

// RecordSegments records the scored population and its segment sizes
func (m *PipelineMetrics) RecordSegments(ctx context.Context, customers []domain.ScoredCustomer) {
	m.CustomersScored.Add(ctx, int64(len(customers)))

	counts := rfm.CountBySegment(customers)
	for _, s := range domain.AllSegments {
		m.SegmentCustomers.Record(ctx, int64(counts[s]), metric.WithAttributes(attribute.String("segment", s.String())))
	}
}

// TraceIDFromContext extracts the otel trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}
