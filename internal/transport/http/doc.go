// Package http serves the read-only report of a finished pipeline run.
// Handlers are thin: they parse the request, call the services layer and
// render JSON. Every error goes through errors.ErrorHandler and is written
// as RFC 7807 problem details.
//
// Routes:
//
//	GET /api/health
//	GET /api/run
//	GET /api/segments
//	GET /api/segments/{segment}/customers
//	GET /api/codes/{code}/customers
//	GET /api/customers/{id}
//	GET /api/outliers
//	GET /metrics
package http
