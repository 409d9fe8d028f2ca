package operations

import (
	"sync"
	"time"

	"rfmcli/internal/dataprocessing"
	"rfmcli/pkg/contracts/domain"
)

// OperationStatus represents the overall run status
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// Result holds everything the pipeline produced. Fields are filled in step
// order; a failed run leaves later fields at their zero value.
type Result struct {
	Table       *dataprocessing.Table
	Overview    *domain.DatasetOverview
	Cleaned     []domain.CleanedTransaction
	CleanReport domain.CleanReport
	Outliers    *domain.OutlierReport
	Reference   time.Time
	Metrics     []domain.CustomerMetrics
	Scored      []domain.ScoredCustomer
	Summary     []domain.SegmentSummary
	Exported    int
	LoyalPath   string
	ScoredPath  string
}

// RunState represents the complete state of one pipeline run
type RunState struct {
	mu sync.RWMutex

	ID        string          `json:"id"`
	Status    OperationStatus `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`

	// Steps in execution order
	Steps []*StepState `json:"steps"`

	Error error `json:"-"`

	Result Result `json:"-"`
}

// NewRunState creates a new run state
func NewRunState(id string) *RunState {
	return &RunState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make([]*StepState, 0),
	}
}

// Start marks the run as running
func (p *RunState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the run as completed
func (p *RunState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the run as failed
func (p *RunState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the run as cancelled
func (p *RunState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStatus returns the current run status
func (p *RunState) GetStatus() OperationStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// AddStage appends the state of a step
func (p *RunState) AddStage(state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps = append(p.Steps, state)
}

// GetStage returns the state of a specific Step
func (p *RunState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.Steps {
		if s.ID == stageID {
			return s
		}
	}
	return nil
}

// Duration returns the duration of the run
func (p *RunState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// GetCompletedStages returns all completed steps
func (p *RunState) GetCompletedStages() []*StepState {
	return p.stagesWith(StepStatusCompleted)
}

// GetFailedStages returns all failed steps
func (p *RunState) GetFailedStages() []*StepState {
	return p.stagesWith(StepStatusFailed)
}

func (p *RunState) stagesWith(status StepStatus) []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*StepState
	for _, s := range p.Steps {
		if s.GetStatus() == status {
			out = append(out, s)
		}
	}
	return out
}

// IsComplete returns true if no step is pending or active
func (p *RunState) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.Steps {
		if st := s.GetStatus(); st == StepStatusPending || st == StepStatusActive {
			return false
		}
	}
	return true
}
