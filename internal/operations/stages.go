package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rfmcli/internal/config"
	"rfmcli/internal/dataprocessing"
	apperrors "rfmcli/internal/errors"
	"rfmcli/internal/exporter"
	"rfmcli/internal/files"
	"rfmcli/internal/infrastructure"
	"rfmcli/internal/rfm"
	"rfmcli/internal/validation"
	"rfmcli/pkg/contracts/domain"
)

// Step IDs in execution order
const (
	StageIDLoad      = "load"
	StageIDClean     = "clean"
	StageIDOutliers  = "outliers"
	StageIDAggregate = "aggregate"
	StageIDScore     = "score"
	StageIDSegment   = "segment"
	StageIDExport    = "export"
)

// StageOrder lists the pipeline steps as NewPipeline registers them
var StageOrder = []string{
	StageIDLoad, StageIDClean, StageIDOutliers, StageIDAggregate,
	StageIDScore, StageIDSegment, StageIDExport,
}

// Options parameterizes one pipeline run
type Options struct {
	InputPath string
	Sheet     string
	Format    string

	// Reference is the recency anchor; zero means the day after the last
	// cleaned transaction
	Reference          time.Time
	CancellationMarker string
	ScanOutliers       bool
	Outliers           dataprocessing.OutlierOptions
	TopN               int

	OutputDir     string
	LoyalFile     string
	ScoredFile    string
	TargetSegment domain.Segment
	BOMPrefix     bool
}

// OptionsFromConfig converts the application config into run options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	ref, _, err := cfg.Analysis.Reference()
	if err != nil {
		return Options{}, err
	}
	segment, ok := domain.ParseSegment(cfg.Output.TargetSegment)
	if !ok {
		return Options{}, fmt.Errorf("unknown target segment %q", cfg.Output.TargetSegment)
	}

	return Options{
		InputPath:          cfg.Input.Path,
		Sheet:              cfg.Input.Sheet,
		Format:             cfg.Input.Format,
		Reference:          ref,
		CancellationMarker: cfg.Analysis.CancellationMarker,
		ScanOutliers:       cfg.Analysis.ScanOutliers,
		Outliers: dataprocessing.OutlierOptions{
			LowerPercentile: cfg.Analysis.LowerPercentile,
			UpperPercentile: cfg.Analysis.UpperPercentile,
			Multiplier:      cfg.Analysis.FenceMultiplier,
		},
		TopN:          cfg.Analysis.TopN,
		OutputDir:     cfg.Output.Dir,
		LoyalFile:     cfg.Output.LoyalFile,
		ScoredFile:    cfg.Output.ScoredFile,
		TargetSegment: segment,
		BOMPrefix:     cfg.Output.BOMPrefix,
	}, nil
}

// stageDeps are shared by every step of a pipeline
type stageDeps struct {
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// LoadStage reads the transaction table and summarizes it
type LoadStage struct {
	BaseStage
	stageDeps
	opts  Options
	input string
}

// NewLoadStage creates the load step
func NewLoadStage(opts Options, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *LoadStage {
	return &LoadStage{
		BaseStage: NewBaseStage(StageIDLoad, "Load transactions"),
		stageDeps: stageDeps{logger: logger, metrics: metrics},
		opts:      opts,
	}
}

// Validate requires a readable input file of the configured format. A
// directory input resolves to its most recent transaction file.
func (s *LoadStage) Validate(state *RunState) error {
	if s.opts.InputPath == "" {
		return NewValidationError(s.ID(), "input path is required")
	}

	input, err := files.NewDiscovery("").ResolveInput(s.opts.InputPath)
	if err != nil {
		return apperrors.NewValidationError("no input file to load", err).
			WithContext("path", s.opts.InputPath)
	}
	if input != s.opts.InputPath {
		s.logger.Info("input directory resolved",
			slog.String("dir", s.opts.InputPath),
			slog.String("file", input))
	}

	if err := validation.NewFileValidator(s.logger).ValidateInputFile(input, s.opts.Format); err != nil {
		return err
	}
	s.input = input
	return nil
}

// Execute implements Step
func (s *LoadStage) Execute(ctx context.Context, state *RunState) error {
	input := s.input
	if input == "" {
		input = s.opts.InputPath
	}
	table, err := dataprocessing.LoadTable(input, dataprocessing.LoadOptions{
		Format: s.opts.Format,
		Sheet:  s.opts.Sheet,
		Logger: s.logger,
	})
	if err != nil {
		return err
	}

	summarizer := dataprocessing.NewSummarizer(s.logger, dataprocessing.SummarizerConfig{
		CancellationMarker: s.opts.CancellationMarker,
		TopN:               s.opts.TopN,
	})
	overview := summarizer.Overview(ctx, table)

	state.Result.Table = table
	state.Result.Overview = &overview
	return nil
}

// CleanStage drops canceled and incomplete rows
type CleanStage struct {
	BaseStage
	stageDeps
	marker string
}

// NewCleanStage creates the clean step
func NewCleanStage(marker string, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *CleanStage {
	return &CleanStage{
		BaseStage: NewBaseStage(StageIDClean, "Clean transactions"),
		stageDeps: stageDeps{logger: logger, metrics: metrics},
		marker:    marker,
	}
}

// Validate requires a loaded table
func (s *CleanStage) Validate(state *RunState) error {
	if state.Result.Table == nil {
		return NewValidationError(s.ID(), "no transaction table loaded")
	}
	return nil
}

// Execute implements Step
func (s *CleanStage) Execute(ctx context.Context, state *RunState) error {
	cleaned, report := dataprocessing.Clean(state.Result.Table.Rows, s.marker)
	s.metrics.RecordClean(ctx, report)

	s.logger.InfoContext(ctx, "transactions cleaned",
		slog.Int("input_rows", report.InputRows),
		slog.Int("canceled_rows", report.CanceledRows),
		slog.Int("incomplete_rows", report.IncompleteRows),
		slog.Int("clean_rows", report.CleanRows))

	state.Result.Cleaned = cleaned
	state.Result.CleanReport = report
	return nil
}

// OutlierStage reports IQR fences of the numeric features. It never
// changes the cleaned rows.
type OutlierStage struct {
	BaseStage
	stageDeps
	enabled bool
	opts    dataprocessing.OutlierOptions
}

// NewOutlierStage creates the outlier scan step
func NewOutlierStage(enabled bool, opts dataprocessing.OutlierOptions, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *OutlierStage {
	return &OutlierStage{
		BaseStage: NewBaseStage(StageIDOutliers, "Scan outliers"),
		stageDeps: stageDeps{logger: logger, metrics: metrics},
		enabled:   enabled,
		opts:      opts,
	}
}

// Enabled reports whether the scan runs
func (s *OutlierStage) Enabled() bool { return s.enabled }

// Execute implements Step
func (s *OutlierStage) Execute(ctx context.Context, state *RunState) error {
	report := dataprocessing.ScanOutliers(state.Result.Cleaned, s.opts)
	s.metrics.RecordOutliers(ctx, report)

	for _, f := range report.Features {
		s.logger.InfoContext(ctx, "outlier fence",
			slog.String("feature", string(f.Feature)),
			slog.Float64("lower", f.Lower),
			slog.Float64("upper", f.Upper),
			slog.Int("outside", f.Count))
	}

	state.Result.Outliers = &report
	return nil
}

// AggregateStage derives recency, frequency and monetary per customer
type AggregateStage struct {
	BaseStage
	stageDeps
	reference time.Time
}

// NewAggregateStage creates the aggregation step. A zero reference is
// derived from the data.
func NewAggregateStage(reference time.Time, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *AggregateStage {
	return &AggregateStage{
		BaseStage: NewBaseStage(StageIDAggregate, "Aggregate metrics"),
		stageDeps: stageDeps{logger: logger, metrics: metrics},
		reference: reference,
	}
}

// Execute implements Step
func (s *AggregateStage) Execute(ctx context.Context, state *RunState) error {
	ref := s.reference
	if ref.IsZero() {
		derived, err := rfm.DefaultReference(state.Result.Cleaned)
		if err != nil {
			return err
		}
		ref = derived
	}

	metrics, err := rfm.Aggregate(state.Result.Cleaned, ref)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "customer metrics aggregated",
		slog.String("reference_date", ref.Format(config.ReferenceDateLayout)),
		slog.Int("customers", len(metrics)))

	state.Result.Reference = ref
	state.Result.Metrics = metrics
	return nil
}

// ScoreStage assigns quintile scores
type ScoreStage struct {
	BaseStage
	stageDeps
}

// NewScoreStage creates the scoring step
func NewScoreStage(logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *ScoreStage {
	return &ScoreStage{
		BaseStage: NewBaseStage(StageIDScore, "Score customers"),
		stageDeps: stageDeps{logger: logger, metrics: metrics},
	}
}

// Execute implements Step
func (s *ScoreStage) Execute(ctx context.Context, state *RunState) error {
	scored, err := rfm.Score(state.Result.Metrics)
	if err != nil {
		return err
	}
	state.Result.Scored = scored
	return nil
}

// SegmentStage labels every scored customer and summarizes the segments
type SegmentStage struct {
	BaseStage
	stageDeps
}

// NewSegmentStage creates the segmentation step
func NewSegmentStage(logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *SegmentStage {
	return &SegmentStage{
		BaseStage: NewBaseStage(StageIDSegment, "Segment customers"),
		stageDeps: stageDeps{logger: logger, metrics: metrics},
	}
}

// Execute implements Step
func (s *SegmentStage) Execute(ctx context.Context, state *RunState) error {
	segmented := rfm.Segment(state.Result.Scored)
	s.metrics.RecordSegments(ctx, segmented)

	summary := rfm.Summarize(segmented)
	for _, seg := range summary {
		s.logger.InfoContext(ctx, "segment summary",
			slog.String("segment", seg.Segment.String()),
			slog.Int("customers", seg.Customers),
			slog.Float64("recency_mean", seg.Recency.Mean),
			slog.Float64("frequency_mean", seg.Frequency.Mean),
			slog.Float64("monetary_mean", seg.Monetary.Mean))
	}

	state.Result.Scored = segmented
	state.Result.Summary = summary
	return nil
}

// ExportStage writes the target segment and, optionally, the scored table
type ExportStage struct {
	BaseStage
	stageDeps
	opts Options
}

// NewExportStage creates the export step
func NewExportStage(opts Options, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *ExportStage {
	return &ExportStage{
		BaseStage: NewBaseStage(StageIDExport, "Export segment"),
		stageDeps: stageDeps{logger: logger, metrics: metrics},
		opts:      opts,
	}
}

// Validate requires segmented customers and a writable output directory
func (s *ExportStage) Validate(state *RunState) error {
	if state.Result.Scored == nil {
		return NewValidationError(s.ID(), "no segmented customers")
	}
	return validation.NewFileValidator(s.logger).ValidateOutputDirectory(s.opts.OutputDir)
}

// Execute implements Step
func (s *ExportStage) Execute(ctx context.Context, state *RunState) error {
	writer := exporter.NewCSVWriter(s.opts.OutputDir)

	segments := exporter.NewSegmentExporter(writer, s.logger, exporter.WithBOM(s.opts.BOMPrefix))
	n, err := segments.Export(ctx, state.Result.Scored, s.opts.TargetSegment, s.opts.LoyalFile)
	if err != nil {
		return err
	}
	state.Result.Exported = n
	state.Result.LoyalPath = writer.ResolvePath(s.opts.LoyalFile)

	if s.opts.ScoredFile != "" {
		path, err := exporter.NewScoredExporter(writer, s.logger).Export(ctx, state.Result.Scored, s.opts.ScoredFile)
		if err != nil {
			return err
		}
		state.Result.ScoredPath = path
	}
	return nil
}
