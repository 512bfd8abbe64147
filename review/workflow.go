package review

import (
	"context"
	"fmt"
	"log/slog"
)

// Default token budgets, tuned for the gpt-4 encoding the counter uses.
const (
	// DefaultPrimaryBudget caps the combined tokens admitted into the
	// language buckets of a staged review.
	DefaultPrimaryBudget = 4000

	// DefaultLongPRThreshold is the total-token cutoff above which a
	// change set is reviewed in stages instead of one call.
	DefaultLongPRThreshold = 3000

	// DefaultBatchBudget caps the content of one batch review call.
	DefaultBatchBudget = 2000

	// DefaultChunkBudget caps the content of one overflow summary call.
	DefaultChunkBudget = 1500
)

// Limits carries the token budgets for one review workflow.
type Limits struct {
	PrimaryBudget   int
	LongPRThreshold int
	BatchBudget     int
	ChunkBudget     int
}

// DefaultLimits returns the production default budgets.
func DefaultLimits() Limits {
	return Limits{
		PrimaryBudget:   DefaultPrimaryBudget,
		LongPRThreshold: DefaultLongPRThreshold,
		BatchBudget:     DefaultBatchBudget,
		ChunkBudget:     DefaultChunkBudget,
	}
}

// Validate rejects limits no workflow can run under.
func (l Limits) Validate() error {
	if l.PrimaryBudget <= 0 {
		return fmt.Errorf("primary budget must be positive, got %d", l.PrimaryBudget)
	}
	if l.LongPRThreshold <= 0 {
		return fmt.Errorf("long PR threshold must be positive, got %d", l.LongPRThreshold)
	}
	if l.BatchBudget <= 0 {
		return fmt.Errorf("batch budget must be positive, got %d", l.BatchBudget)
	}
	if l.ChunkBudget <= 0 {
		return fmt.Errorf("chunk budget must be positive, got %d", l.ChunkBudget)
	}
	return nil
}

// State identifies one step of the review workflow.
type State int

const (
	// StateAnalyzeSize decides between the single-call and staged paths.
	StateAnalyzeSize State = iota
	// StateReviewShort reviews the whole change set in one call.
	StateReviewShort
	// StatePrepareBatch asks the scheduler for the next batch.
	StatePrepareBatch
	// StateReviewBatch reviews the current batch.
	StateReviewBatch
	// StateSummarizeOverflow summarizes the overflow chunks.
	StateSummarizeOverflow
	// StateSynthesize merges all partial results into the final review.
	StateSynthesize
	// StateDone is the terminal state.
	StateDone
)

// String returns the state name used in logs and errors.
func (s State) String() string {
	switch s {
	case StateAnalyzeSize:
		return "analyze_size"
	case StateReviewShort:
		return "review_short"
	case StatePrepareBatch:
		return "prepare_batch"
	case StateReviewBatch:
		return "review_batch"
	case StateSummarizeOverflow:
		return "summarize_overflow"
	case StateSynthesize:
		return "synthesize"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// WorkflowState is the mutable context of one review run. A run owns its
// state exclusively; concurrent runs never share one.
type WorkflowState struct {
	// Files is the ordered change set under review.
	Files []*FilePatch
	// DeletedFiles lists removed filenames. They contribute no reviewable
	// content and are reported as names in the final narrative.
	DeletedFiles []string

	// IsLongRun is decided once by the size analysis and never changes.
	IsLongRun bool
	// Groups holds the language buckets and overflow of a staged run.
	Groups *PatchGroups
	// CurrentBatch is the batch scheduled for the next review call.
	CurrentBatch []*FilePatch
	// BatchReviews collects per-batch review text in scheduling order.
	BatchReviews []string
	// OverflowSummaries collects per-chunk summaries in chunk order.
	OverflowSummaries []string
	// FinalReview is set exactly once, by whichever path terminates the run.
	FinalReview string

	scheduler *BatchScheduler
}

// NewWorkflowState builds the state for one run over the given change set.
func NewWorkflowState(files []*FilePatch, deletedFiles []string) *WorkflowState {
	return &WorkflowState{
		Files:        files,
		DeletedFiles: deletedFiles,
	}
}

// TotalTokens sums the cached token counts of every file in the run.
func (ws *WorkflowState) TotalTokens() int {
	return TotalTokens(ws.Files)
}

// Workflow drives change-set reviews as an explicit state machine.
type Workflow struct {
	invoker ModelInvoker
	limits  Limits
	logger  *slog.Logger
}

// NewWorkflow creates a workflow over an invoker and budgets. Limits are
// taken as given; validate them before any run starts.
func NewWorkflow(invoker ModelInvoker, limits Limits, logger *slog.Logger) *Workflow {
	return &Workflow{
		invoker: invoker,
		limits:  limits,
		logger:  logger,
	}
}

// Run drives the machine from the size analysis to a terminal state and
// returns the final review text. A model-call failure aborts the whole
// run: no partial review is ever returned, and the caller restarts from
// the full change set if it still wants a result.
func (w *Workflow) Run(ctx context.Context, ws *WorkflowState) (string, error) {
	state := StateAnalyzeSize
	for state != StateDone {
		next, err := w.step(ctx, state, ws)
		if err != nil {
			return "", fmt.Errorf("review workflow failed at %s: %w", state, err)
		}
		state = next
	}
	return ws.FinalReview, nil
}

// step executes one transition. All transitions are encoded here, so each
// edge of the machine can be exercised directly in tests.
func (w *Workflow) step(ctx context.Context, state State, ws *WorkflowState) (State, error) {
	switch state {
	case StateAnalyzeSize:
		return w.analyzeSize(ws), nil
	case StateReviewShort:
		return w.reviewShort(ctx, ws)
	case StatePrepareBatch:
		return w.prepareBatch(ws), nil
	case StateReviewBatch:
		return w.reviewBatch(ctx, ws)
	case StateSummarizeOverflow:
		return w.summarizeOverflow(ctx, ws)
	case StateSynthesize:
		return w.synthesize(ctx, ws)
	default:
		return StateDone, fmt.Errorf("no transition from state %s", state)
	}
}

// analyzeSize routes the run: at or under the threshold everything goes
// through one call, above it the change set is organized for staged review.
func (w *Workflow) analyzeSize(ws *WorkflowState) State {
	total := ws.TotalTokens()
	ws.IsLongRun = total > w.limits.LongPRThreshold

	if !ws.IsLongRun {
		w.logger.Info("change set fits a single review call",
			"files", len(ws.Files),
			"tokens", total,
		)
		return StateReviewShort
	}

	ws.Groups = OrganizePatches(ws.Files, w.limits.PrimaryBudget)
	ws.scheduler = NewBatchScheduler(ws.Groups, w.limits.BatchBudget)
	w.logger.Info("change set requires staged review",
		"files", len(ws.Files),
		"tokens", total,
		"languages", len(ws.Groups.Languages),
		"bucketed", ws.Groups.TotalBucketed(),
		"overflow", len(ws.Groups.Overflow),
	)
	return StatePrepareBatch
}

func (w *Workflow) reviewShort(ctx context.Context, ws *WorkflowState) (State, error) {
	text, err := w.invoker.Invoke(ctx, BuildShortReviewMessages(ws.Files, ws.DeletedFiles))
	if err != nil {
		return StateReviewShort, err
	}
	ws.FinalReview = text
	return StateDone, nil
}

func (w *Workflow) prepareBatch(ws *WorkflowState) State {
	ws.CurrentBatch = ws.scheduler.NextBatch()
	if len(ws.CurrentBatch) == 0 {
		return StateSummarizeOverflow
	}
	return StateReviewBatch
}

func (w *Workflow) reviewBatch(ctx context.Context, ws *WorkflowState) (State, error) {
	w.logger.Info("reviewing batch",
		"batch", len(ws.BatchReviews)+1,
		"files", len(ws.CurrentBatch),
		"tokens", TotalTokens(ws.CurrentBatch),
	)

	text, err := w.invoker.Invoke(ctx, BuildBatchReviewMessages(ws.CurrentBatch))
	if err != nil {
		return StateReviewBatch, err
	}
	ws.BatchReviews = append(ws.BatchReviews, text)
	return StatePrepareBatch, nil
}

func (w *Workflow) summarizeOverflow(ctx context.Context, ws *WorkflowState) (State, error) {
	if len(ws.Groups.Overflow) == 0 {
		return StateSynthesize, nil
	}

	chunks := ChunkPatches(ws.Groups.Overflow, w.limits.ChunkBudget)
	w.logger.Info("summarizing overflow",
		"files", len(ws.Groups.Overflow),
		"chunks", len(chunks),
	)

	for _, chunk := range chunks {
		text, err := w.invoker.Invoke(ctx, BuildChunkSummaryMessages(chunk))
		if err != nil {
			return StateSummarizeOverflow, err
		}
		ws.OverflowSummaries = append(ws.OverflowSummaries, text)
	}
	return StateSynthesize, nil
}

func (w *Workflow) synthesize(ctx context.Context, ws *WorkflowState) (State, error) {
	text, err := w.invoker.Invoke(ctx, BuildFinalReviewMessages(ws.BatchReviews, ws.OverflowSummaries, ws.DeletedFiles))
	if err != nil {
		return StateSynthesize, err
	}
	ws.FinalReview = text
	return StateDone, nil
}
