// Package operations runs the segmentation pipeline as an ordered list of
// steps over a shared run state.
//
// Core Components:
//
// Manager: executes the registered steps in registration order, checks the
// context between steps, opens one trace span per step and records step
// durations.
//
// Step: a single unit of work (load, clean, outliers, aggregate, score,
// segment, export). Steps read what earlier steps left in the RunState and
// write their own results back.
//
// Registry: keeps steps in registration order and rejects duplicate IDs.
//
// State: tracks the run and each step (pending, active, completed, failed,
// skipped) together with the pipeline artifacts.
//
// Example usage:
//
//	opts, err := operations.OptionsFromConfig(cfg)
//	manager, err := operations.NewPipeline(opts, logger, telemetry)
//	state, err := manager.Execute(ctx)
//	fmt.Println(state.Result.Exported)
package operations
