package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "rfmcli/internal/errors"
	"rfmcli/internal/operations"
	"rfmcli/internal/rfm"
	"rfmcli/pkg/contracts/domain"
)

// RunInfo describes the run a report was built from
type RunInfo struct {
	RunID         string                  `json:"run_id"`
	Status        string                  `json:"status"`
	Source        string                  `json:"source,omitempty"`
	ReferenceDate string                  `json:"reference_date"`
	Customers     int                     `json:"customers"`
	Exported      int                     `json:"exported"`
	LoyalPath     string                  `json:"loyal_path,omitempty"`
	Clean         domain.CleanReport      `json:"clean"`
	Overview      *domain.DatasetOverview `json:"overview,omitempty"`
	Steps         []*operations.StepState `json:"steps"`
	Duration      string                  `json:"duration"`
}

// ReportService answers queries against one pipeline result
type ReportService struct {
	mu      sync.RWMutex
	state   *operations.RunState
	byID    map[string]int
	summary []domain.SegmentSummary
	logger  *slog.Logger
}

// NewReportService creates a report service. state may be nil until a run
// finishes; see Load.
func NewReportService(state *operations.RunState, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ReportService{logger: logger.With("service", "report")}
	if state != nil {
		s.Load(state)
	}
	return s
}

// Load replaces the served result
func (s *ReportService) Load(state *operations.RunState) {
	byID := make(map[string]int, len(state.Result.Scored))
	for i, c := range state.Result.Scored {
		byID[c.CustomerID] = i
	}
	summary := state.Result.Summary
	if summary == nil {
		summary = rfm.Summarize(state.Result.Scored)
	}

	s.mu.Lock()
	s.state = state
	s.byID = byID
	s.summary = summary
	s.mu.Unlock()

	s.logger.Info("report loaded",
		slog.String("run_id", state.ID),
		slog.Int("customers", len(byID)))
}

// Loaded reports whether a result is available
func (s *ReportService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil
}

func (s *ReportService) current() (*operations.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, apperrors.NewNotFoundError("report").WithContext("cause", ErrNoReport.Error())
	}
	return s.state, nil
}

// Info describes the loaded run
func (s *ReportService) Info(ctx context.Context) (RunInfo, error) {
	state, err := s.current()
	if err != nil {
		return RunInfo{}, err
	}

	res := state.Result
	info := RunInfo{
		RunID:     state.ID,
		Status:    string(state.GetStatus()),
		Customers: len(res.Scored),
		Exported:  res.Exported,
		LoyalPath: res.LoyalPath,
		Clean:     res.CleanReport,
		Overview:  res.Overview,
		Steps:     state.Steps,
		Duration:  state.Duration().Round(time.Millisecond).String(),
	}
	if res.Table != nil {
		info.Source = res.Table.Source
	}
	if !res.Reference.IsZero() {
		info.ReferenceDate = res.Reference.Format("2006-01-02")
	}
	return info, nil
}

// Segments returns the per segment summary in rule order
func (s *ReportService) Segments(ctx context.Context) ([]domain.SegmentSummary, error) {
	if _, err := s.current(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, nil
}

// Customer returns one scored customer
func (s *ReportService) Customer(ctx context.Context, id string) (domain.ScoredCustomer, error) {
	state, err := s.current()
	if err != nil {
		return domain.ScoredCustomer{}, err
	}

	s.mu.RLock()
	idx, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return domain.ScoredCustomer{}, apperrors.NewNotFoundError(fmt.Sprintf("customer %s", id)).
			WithContext("customer_id", id)
	}
	return state.Result.Scored[idx], nil
}

// SegmentCustomers returns the customers of a segment in customer order
func (s *ReportService) SegmentCustomers(ctx context.Context, label string) ([]domain.ScoredCustomer, error) {
	state, err := s.current()
	if err != nil {
		return nil, err
	}

	segment, ok := domain.ParseSegment(label)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown segment %q", label), ErrUnknownSegment).
			WithContext("segment", label)
	}
	return rfm.FilterBySegment(state.Result.Scored, segment), nil
}

// CodeCustomers returns the customers with a given three digit RFM code
func (s *ReportService) CodeCustomers(ctx context.Context, code string) ([]domain.ScoredCustomer, error) {
	state, err := s.current()
	if err != nil {
		return nil, err
	}
	if !validCode(code) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid RFM code %q", code), nil).
			WithContext("code", code)
	}
	return rfm.FilterByCode(state.Result.Scored, code), nil
}

// Outliers returns the diagnostic outlier report
func (s *ReportService) Outliers(ctx context.Context) (domain.OutlierReport, error) {
	state, err := s.current()
	if err != nil {
		return domain.OutlierReport{}, err
	}
	if state.Result.Outliers == nil {
		return domain.OutlierReport{}, apperrors.NewNotFoundError("outlier report").
			WithContext("cause", ErrNoOutlierReport.Error())
	}
	return *state.Result.Outliers, nil
}

func validCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < '1' || r > '5' {
			return false
		}
	}
	return true
}
