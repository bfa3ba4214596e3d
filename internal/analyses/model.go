package analyses

import "time"

// Lifecycle states of an analysis. An analysis only moves forward through
// these states and never re-enters a prior one; completed and failed are
// terminal and freeze the record.
const (
	StatusPending   = "pending"
	StatusStarted   = "started"
	StatusFetching  = "fetching"
	StatusAnalyzing = "analyzing"
	StatusSaving    = "saving"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// IsTerminal reports whether the status is a terminal state.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// progressFor maps a status to a rough percent-complete hint for pollers.
func progressFor(status string) int {
	switch status {
	case StatusPending:
		return 0
	case StatusStarted:
		return 10
	case StatusFetching:
		return 25
	case StatusAnalyzing:
		return 50
	case StatusSaving:
		return 90
	case StatusCompleted, StatusFailed:
		return 100
	}
	return 0
}

// Analysis is the durable record of one analysis run for a company.
// Records are append-only per company and immutable once terminal.
type Analysis struct {
	ID               string   `json:"id"`
	CompanyID        string   `json:"companyId"`
	Status           string   `json:"status"`
	FilingsRequested []string `json:"filingsRequested"`
	FilingsAnalyzed  []string `json:"filingsAnalyzed"`
	Result           *Verdict `json:"result"`
	ErrorCode        *string  `json:"errorCode"`
	ErrorMessage     *string  `json:"errorMessage"`
	TaskID           *string  `json:"taskId"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StatusSnapshot is the compact view returned to pollers.
type StatusSnapshot struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Progress     int     `json:"progress"`
	ErrorCode    *string `json:"errorCode,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
}

// Snapshot derives the poller view from a full record.
func (a Analysis) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		ID:           a.ID,
		Status:       a.Status,
		Progress:     progressFor(a.Status),
		ErrorCode:    a.ErrorCode,
		ErrorMessage: a.ErrorMessage,
	}
}
