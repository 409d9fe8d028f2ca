package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	report    *ReportService
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service reporting on report
func NewHealthService(version string, report *ReportService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		report:    report,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck reports overall health. The server is healthy once a report
// is loaded.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	report := hs.checkReportHealth()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"uptime":     time.Since(hs.startTime).Round(time.Second).String(),
		},
		Services: map[string]interface{}{
			"report": report,
		},
	}
	if report.Status != "healthy" {
		status.Status = "degraded"
	}

	hs.logger.DebugContext(ctx, "health check",
		slog.String("status", status.Status))
	return status
}

func (hs *HealthService) checkReportHealth() ServiceHealth {
	if hs.report == nil || !hs.report.Loaded() {
		return ServiceHealth{Status: "unavailable", Message: "no pipeline result loaded"}
	}
	return ServiceHealth{
		Status: "healthy",
		Uptime: time.Since(hs.startTime).Round(time.Second).String(),
	}
}
