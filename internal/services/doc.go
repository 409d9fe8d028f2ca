// Package services implements the read-only report layer over a finished
// pipeline run. It sits between the HTTP handlers and the run state so the
// handlers never touch pipeline internals.
//
// ReportService answers segment, customer and outlier queries from the
// result of one run. HealthService reports liveness and whether a run
// result is loaded.
//
//	report := services.NewReportService(state, logger)
//	summary := report.Segments(ctx)
//	customer, err := report.Customer(ctx, "12346")
package services
