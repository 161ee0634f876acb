// -----------------------------------------------------------------------
// Extraction Run - Batch of properties worked against one portal session
// -----------------------------------------------------------------------

package models

import "time"

// RunStatus is the lifecycle state of an extraction run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunItemStatus is the lifecycle state of a single run item.
type RunItemStatus string

const (
	RunItemStatusQueued    RunItemStatus = "queued"
	RunItemStatusSucceeded RunItemStatus = "succeeded"
	RunItemStatusFailed    RunItemStatus = "failed"
)

// Run is a batch extraction execution against one session.
//
// Invariants maintained by the orchestrator:
//   - TotalCount equals the number of items created with the run
//   - ProcessedCount == SuccessCount + FailureCount at all times
//   - ProcessedCount == TotalCount at every terminal state
//   - a run leaves queued at most once and never returns to it
type Run struct {
	ID             string     `json:"id" badgerhold:"key"`
	SessionID      string     `json:"session_id"`
	Status         RunStatus  `json:"status"`
	TotalCount     int        `json:"total_count"`
	ProcessedCount int        `json:"processed_count"`
	SuccessCount   int        `json:"success_count"`
	FailureCount   int        `json:"failure_count"`
	ErrorSummary   string     `json:"error_summary,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MarkStarted transitions the run to running.
func (r *Run) MarkStarted() {
	r.Status = RunStatusRunning
	now := time.Now()
	r.StartedAt = &now
	r.UpdatedAt = now
}

// MarkSucceeded transitions the run to its successful terminal state.
func (r *Run) MarkSucceeded() {
	r.Status = RunStatusSucceeded
	r.UpdatedAt = time.Now()
}

// MarkFailed transitions the run to its failed terminal state.
func (r *Run) MarkFailed(summary string) {
	r.Status = RunStatusFailed
	r.ErrorSummary = summary
	r.UpdatedAt = time.Now()
}

// IsTerminal reports whether the run has finished.
func (r *Run) IsTerminal() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}

// RunItem is one property worked within a run. Items are processed in
// ascending Seq order; that ordering is the batch's sequencing contract.
type RunItem struct {
	ID         string        `json:"id" badgerhold:"key"`
	RunID      string        `json:"run_id"`
	PropertyID string        `json:"property_id"`
	Seq        int           `json:"seq"`
	Status     RunItemStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ExtractedCustomerData is the ephemeral result of one portal search. It is
// never persisted on its own; on success the orchestrator writes the fields
// onto the target property.
type ExtractedCustomerData struct {
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// IsEmpty reports whether the search produced no customer fields at all.
func (d *ExtractedCustomerData) IsEmpty() bool {
	return d.CustomerName == "" && d.CustomerPhone == "" && d.CustomerEmail == ""
}
