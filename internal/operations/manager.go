package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"rfmcli/internal/config"
	"rfmcli/internal/infrastructure"
)

// optionalStep is implemented by steps that can be switched off
type optionalStep interface {
	Enabled() bool
}

// Manager orchestrates pipeline execution
type Manager struct {
	registry  *Registry
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
}

// NewManager creates a manager with an empty registry. A nil telemetry
// records into no-op providers.
func NewManager(logger *slog.Logger, telemetry *infrastructure.Telemetry) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		tel, err := infrastructure.NewTelemetry(config.TelemetryConfig{}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create telemetry: %w", err)
		}
		telemetry = tel
	}
	return &Manager{
		registry:  NewRegistry(),
		logger:    infrastructure.WithComponent(logger, "pipeline"),
		telemetry: telemetry,
	}, nil
}

// NewPipeline creates a manager with the segmentation steps registered in
// StageOrder
func NewPipeline(opts Options, logger *slog.Logger, telemetry *infrastructure.Telemetry) (*Manager, error) {
	m, err := NewManager(logger, telemetry)
	if err != nil {
		return nil, err
	}

	metrics := m.telemetry.Metrics
	steps := []Step{
		NewLoadStage(opts, infrastructure.WithComponent(logger, "loader"), metrics),
		NewCleanStage(opts.CancellationMarker, infrastructure.WithComponent(logger, "cleaner"), metrics),
		NewOutlierStage(opts.ScanOutliers, opts.Outliers, infrastructure.WithComponent(logger, "outliers"), metrics),
		NewAggregateStage(opts.Reference, infrastructure.WithComponent(logger, "aggregator"), metrics),
		NewScoreStage(infrastructure.WithComponent(logger, "scorer"), metrics),
		NewSegmentStage(infrastructure.WithComponent(logger, "segmenter"), metrics),
		NewExportStage(opts, infrastructure.WithComponent(logger, "exporter"), metrics),
	}
	for _, step := range steps {
		if err := m.RegisterStage(step); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterStage registers a Step with the pipeline
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the registry for accessing registered stages
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Execute runs every registered step in order. The returned state is never
// nil; on failure it records which step failed and keeps the results of the
// steps before it.
func (m *Manager) Execute(ctx context.Context) (*RunState, error) {
	state := NewRunState("run-" + uuid.NewString())
	ctx = infrastructure.WithRunID(infrastructure.EnsureTraceID(ctx), state.ID)

	steps := m.registry.List()
	for _, step := range steps {
		state.AddStage(NewStepState(step.ID(), step.Name()))
	}

	state.Start()
	m.logger.InfoContext(ctx, "pipeline started",
		slog.String("run_id", state.ID),
		slog.Int("step_count", len(steps)))

	for i, step := range steps {
		stepState := state.GetStage(step.ID())

		if err := ctx.Err(); err != nil {
			cancelErr := NewCancellationError(step.ID(), err)
			m.skipRemaining(state, steps[i:], "run cancelled")
			state.Cancel(cancelErr)
			m.logger.WarnContext(ctx, "pipeline cancelled",
				slog.String("run_id", state.ID),
				slog.String("step", step.ID()))
			return state, cancelErr
		}

		if opt, ok := step.(optionalStep); ok && !opt.Enabled() {
			stepState.Skip("disabled")
			m.logger.DebugContext(ctx, "step skipped",
				slog.String("step", step.ID()))
			continue
		}

		if err := m.executeStage(ctx, state, step, stepState); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("previous step %s failed", step.ID()))
			state.Fail(err)
			m.logger.ErrorContext(ctx, "pipeline failed",
				slog.String("run_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
			return state, err
		}
	}

	state.Complete()
	m.logger.InfoContext(ctx, "pipeline completed",
		slog.String("run_id", state.ID),
		slog.Int("customers", len(state.Result.Scored)),
		slog.Int("exported", state.Result.Exported),
		slog.Duration("duration", state.Duration()))
	return state, nil
}

// executeStage validates and runs one step inside its trace span
func (m *Manager) executeStage(ctx context.Context, state *RunState, step Step, stepState *StepState) error {
	stepState.Start()

	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		return err
	}

	stageCtx, end := m.telemetry.StartStage(ctx, step.ID())
	err := step.Execute(stageCtx, state)
	end(err)

	if err != nil {
		stepState.Fail(err)
		return NewExecutionError(step.ID(), err)
	}

	stepState.Complete(fmt.Sprintf("completed in %s", stepState.Duration()))
	m.logger.InfoContext(ctx, "step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", stepState.Duration()))
	return nil
}

func (m *Manager) skipRemaining(state *RunState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}
