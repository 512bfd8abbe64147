package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patchpilot/patchpilot/github"
	"github.com/patchpilot/patchpilot/storage"
)

// failureRecordTimeout bounds the failure write in failTask, which runs
// detached from the analysis context.
const failureRecordTimeout = 10 * time.Second

// DiffSource supplies the changed-file listing of a pull request.
// *github.Client is the production implementation.
type DiffSource interface {
	FetchPullRequestFiles(ctx context.Context, owner, repo string, prNumber int) ([]PullRequestFile, error)
}

// PullRequestFile aliases the GitHub file record so DiffSource
// implementations and the service share one shape.
type PullRequestFile = github.PullRequestFile

// Service runs pull request analyses end to end: fetch the change set,
// review it through the workflow, and record the outcome on the task.
type Service struct {
	source  DiffSource
	store   storage.TaskStore
	counter TokenCounter
	invoker ModelInvoker
	limits  Limits
	logger  *slog.Logger
}

// NewService wires a review service. Invalid limits are rejected here so
// no run ever starts under them.
func NewService(source DiffSource, store storage.TaskStore, counter TokenCounter, invoker ModelInvoker, limits Limits, logger *slog.Logger) (*Service, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid review limits: %w", err)
	}
	return &Service{
		source:  source,
		store:   store,
		counter: counter,
		invoker: invoker,
		limits:  limits,
		logger:  logger,
	}, nil
}

// BuildPatches converts the raw file listing into reviewable patches and
// the deleted-file list. Removed files contribute their name to the
// deleted list and nothing to reviewable content. A missing patch body
// (binary files, files too large for the API) reads as empty content.
func (s *Service) BuildPatches(files []PullRequestFile) ([]*FilePatch, []string) {
	patches := make([]*FilePatch, 0, len(files))
	var deleted []string
	for _, f := range files {
		if f.IsRemoved() {
			deleted = append(deleted, f.Filename)
			continue
		}
		patches = append(patches, NewFilePatch(f.Filename, f.Patch, s.counter))
	}
	return patches, deleted
}

// Review builds the patches for a change set and runs the workflow over
// them, returning the final review text.
func (s *Service) Review(ctx context.Context, files []PullRequestFile) (string, error) {
	patches, deleted := s.BuildPatches(files)
	ws := NewWorkflowState(patches, deleted)
	workflow := NewWorkflow(s.invoker, s.limits, s.logger)
	return workflow.Run(ctx, ws)
}

// Analyze performs the full worker-side analysis of one task: mark it in
// progress, fetch the change set, review it, and record the outcome. The
// returned error reports why the task failed; the failure is already
// recorded on the task by the time Analyze returns.
func (s *Service) Analyze(ctx context.Context, taskID, owner, repo string, prNumber int) error {
	logger := s.logger.With("task_id", taskID, "owner", owner, "repo", repo, "pr", prNumber)
	logger.Info("starting analysis")

	if err := s.store.UpdateTaskStatus(ctx, taskID, storage.StatusInProgress); err != nil {
		return s.failTask(ctx, taskID, fmt.Errorf("failed to mark task in progress: %w", err))
	}

	files, err := s.source.FetchPullRequestFiles(ctx, owner, repo, prNumber)
	if err != nil {
		return s.failTask(ctx, taskID, fmt.Errorf("failed to fetch pull request files: %w", err))
	}
	logger.Info("fetched change set", "files", len(files))

	text, err := s.Review(ctx, files)
	if err != nil {
		return s.failTask(ctx, taskID, err)
	}

	result := NormalizeResult(text)
	if err := s.store.CompleteTask(ctx, taskID, result); err != nil {
		// A result that cannot be recorded still ends the task in a
		// terminal state.
		return s.failTask(ctx, taskID, fmt.Errorf("failed to record result: %w", err))
	}

	logger.Info("analysis complete", "result_bytes", len(result))
	return nil
}

// failTask records the failure detail on the task and returns the cause.
// The write runs under its own deadline, detached from ctx: analyses
// mostly fail because ctx itself timed out or was canceled, and the
// FAILED status must still land.
func (s *Service) failTask(ctx context.Context, taskID string, cause error) error {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureRecordTimeout)
	defer cancel()
	if err := s.store.FailTask(recordCtx, taskID, cause.Error()); err != nil {
		s.logger.Error("failed to record task failure", "task_id", taskID, "error", err)
	}
	return cause
}

// NormalizeResult prepares review text for JSON storage. The model is
// instructed to reply with JSON but does not always comply: a surrounding
// Markdown code fence is stripped, and a reply that still is not valid
// JSON is wrapped as {"review": <text>} so the stored value always parses.
func NormalizeResult(text string) json.RawMessage {
	cleaned := stripCodeFences(text)
	if json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned)
	}
	wrapped, _ := json.Marshal(map[string]string{"review": text})
	return wrapped
}

// stripCodeFences removes a surrounding ```json ... ``` wrapper if present.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
