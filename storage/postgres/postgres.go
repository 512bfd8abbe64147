// Package postgres provides a PostgreSQL implementation of the task store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patchpilot/patchpilot/storage"
)

// PostgreSQL provides task storage using PostgreSQL.
type PostgreSQL struct {
	db *sql.DB
}

// New creates a new PostgreSQL storage instance.
func New(db *sql.DB) *PostgreSQL {
	return &PostgreSQL{db: db}
}

// NewFromDSN creates a new PostgreSQL storage instance from a connection string.
func NewFromDSN(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgreSQL{db: db}, nil
}

// Close closes the database connection.
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

// Migrate creates the required database tables.
func (p *PostgreSQL) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS analysis_tasks (
			id UUID PRIMARY KEY,
			owner TEXT NOT NULL,
			repo TEXT NOT NULL,
			pr_number INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			result JSONB,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_analysis_tasks_pr ON analysis_tasks(owner, repo, pr_number);
		CREATE INDEX IF NOT EXISTS idx_analysis_tasks_status ON analysis_tasks(status);
	`

	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// CreateTask inserts a new task row.
func (p *PostgreSQL) CreateTask(ctx context.Context, task *storage.AnalysisTask) error {
	query := `
		INSERT INTO analysis_tasks (id, owner, repo, pr_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`

	status := task.Status
	if status == "" {
		status = storage.StatusPending
	}

	_, err := p.db.ExecContext(ctx, query, task.ID, task.Owner, task.Repo, task.PRNumber, status)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTask retrieves a task by ID. Returns nil with no error when the task
// does not exist.
func (p *PostgreSQL) GetTask(ctx context.Context, id string) (*storage.AnalysisTask, error) {
	query := `
		SELECT id, owner, repo, pr_number, status, result, error, created_at, updated_at
		FROM analysis_tasks
		WHERE id = $1
	`

	var task storage.AnalysisTask
	var resultJSON, errDetail sql.NullString
	var createdAt, updatedAt time.Time

	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.Owner,
		&task.Repo,
		&task.PRNumber,
		&task.Status,
		&resultJSON,
		&errDetail,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task.Result = resultFromJSON(resultJSON.String)
	task.Error = errDetail.String
	task.CreatedAt = createdAt.Format(time.RFC3339)
	task.UpdatedAt = updatedAt.Format(time.RFC3339)

	return &task, nil
}

// UpdateTaskStatus sets the task status without touching the result.
func (p *PostgreSQL) UpdateTaskStatus(ctx context.Context, id, status string) error {
	query := `UPDATE analysis_tasks SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := p.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	return nil
}

// CompleteTask records a successful result and marks the task SUCCESS.
func (p *PostgreSQL) CompleteTask(ctx context.Context, id string, result json.RawMessage) error {
	query := `
		UPDATE analysis_tasks
		SET status = $2, result = $3, error = NULL, updated_at = NOW()
		WHERE id = $1
	`

	_, err := p.db.ExecContext(ctx, query, id, storage.StatusSuccess, resultToJSON(result))
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	return nil
}

// FailTask records the failure detail and marks the task FAILED.
func (p *PostgreSQL) FailTask(ctx context.Context, id, detail string) error {
	query := `
		UPDATE analysis_tasks
		SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1
	`

	_, err := p.db.ExecContext(ctx, query, id, storage.StatusFailed, detail)
	if err != nil {
		return fmt.Errorf("failed to mark task failed: %w", err)
	}

	return nil
}

// Verify PostgreSQL implements TaskStore at compile time.
var _ storage.TaskStore = (*PostgreSQL)(nil)
