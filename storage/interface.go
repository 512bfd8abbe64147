// Package storage defines the task storage interface for PatchPilot.
package storage

import (
	"context"
	"encoding/json"
)

// TaskStore defines the interface for analysis task storage backends.
// Implementations must be safe for concurrent use by multiple goroutines.
type TaskStore interface {
	// CreateTask inserts a new task. The caller supplies the ID.
	CreateTask(ctx context.Context, task *AnalysisTask) error
	// GetTask retrieves a task by ID. Returns nil with no error when the
	// task does not exist.
	GetTask(ctx context.Context, id string) (*AnalysisTask, error)
	// UpdateTaskStatus sets the task status without touching the result.
	UpdateTaskStatus(ctx context.Context, id, status string) error
	// CompleteTask records a successful result and marks the task SUCCESS.
	CompleteTask(ctx context.Context, id string, result json.RawMessage) error
	// FailTask records the failure detail and marks the task FAILED.
	FailTask(ctx context.Context, id, detail string) error
}
