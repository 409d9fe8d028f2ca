package http

import (
	"context"

	"rfmcli/internal/services"
	"rfmcli/pkg/contracts/domain"
)

// ReportServiceInterface defines the report queries the handlers need
type ReportServiceInterface interface {
	Info(ctx context.Context) (services.RunInfo, error)
	Segments(ctx context.Context) ([]domain.SegmentSummary, error)
	Customer(ctx context.Context, id string) (domain.ScoredCustomer, error)
	SegmentCustomers(ctx context.Context, label string) ([]domain.ScoredCustomer, error)
	CodeCustomers(ctx context.Context, code string) ([]domain.ScoredCustomer, error)
	Outliers(ctx context.Context) (domain.OutlierReport, error)
}
