package storage

import "encoding/json"

// Task statuses, in lifecycle order. A task is created PENDING, moves to
// IN_PROGRESS when a worker picks it up, and terminates as SUCCESS or
// FAILED.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
)

// AnalysisTask tracks one requested pull request analysis.
type AnalysisTask struct {
	ID       string `json:"id"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	PRNumber int    `json:"pr_number"`
	Status   string `json:"status"`
	// Result holds the normalized review JSON once the task succeeds.
	Result json.RawMessage `json:"result,omitempty"`
	// Error holds the failure detail once the task fails.
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
