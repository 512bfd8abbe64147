// Package main provides the PatchPilot analysis worker.
//
// The worker consumes queued analysis jobs, fetches each pull request's
// change set from GitHub, runs the review workflow, and records results
// on the task row. Run any number of workers against the same queue.
//
// Configuration matches cmd/server, plus:
//
//	WORKERS - number of concurrent analyses per process (default: 4)
//
// Usage:
//
//	go run cmd/worker/main.go
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/patchpilot/patchpilot/anthropic"
	"github.com/patchpilot/patchpilot/config"
	"github.com/patchpilot/patchpilot/github"
	"github.com/patchpilot/patchpilot/queue"
	"github.com/patchpilot/patchpilot/review"
	"github.com/patchpilot/patchpilot/storage/postgres"
)

const (
	// dequeueTimeout is how long one poll blocks before rechecking shutdown.
	dequeueTimeout = 5 * time.Second

	// analysisTimeout bounds one complete analysis, including every model
	// call the workflow makes.
	analysisTimeout = 15 * time.Minute
)

var (
	logger    *slog.Logger
	cfg       *config.Config
	pgStorage *postgres.PostgreSQL
	taskQueue *queue.Queue
	service   *review.Service
)

func main() {
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := initialize(); err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer pgStorage.Close()
	defer taskQueue.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", "concurrency", cfg.Workers)

	if err := run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}

	logger.Info("worker stopped")
}

func initialize() error {
	var err error
	cfg, err = config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	// A worker with a bad key or tokenizer would fail every task it picked
	// up, so both are checked before consuming anything.
	validateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := anthropic.ValidateAPIKey(validateCtx, cfg.AnthropicAPIKey); err != nil {
		return err
	}

	counter, err := review.NewTiktokenCounter()
	if err != nil {
		return err
	}

	// Initialize PostgreSQL storage
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	pgStorage = postgres.New(db)

	if err := pgStorage.Migrate(context.Background()); err != nil {
		return err
	}

	// Connect the job queue
	taskQueue, err = queue.NewFromURL(context.Background(), cfg.RedisURL, cfg.QueueKey)
	if err != nil {
		return err
	}

	var githubClient *github.Client
	if cfg.GitHubAppID != 0 {
		githubClient = github.NewAppClient(cfg.GitHubAppID, []byte(cfg.GitHubPrivateKey))
	} else {
		githubClient = github.NewClient(cfg.GitHubToken)
	}

	invoker := review.NewClaudeInvoker(cfg.AnthropicAPIKey, cfg.Model, logger)

	service, err = review.NewService(githubClient, pgStorage, counter, invoker, cfg.Limits(), logger)
	if err != nil {
		return err
	}

	logger.Info("initialized",
		"key_hint", anthropic.ExtractKeyHint(cfg.AnthropicAPIKey),
		"workers", cfg.Workers,
	)
	return nil
}

// run consumes jobs until ctx is canceled. Jobs run concurrently up to the
// configured worker count, each under its own timeout; in-flight analyses
// finish before run returns.
func run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(cfg.Workers))

	for {
		// Acquire before dequeuing so a popped job always has a slot and
		// is never stranded in memory at shutdown.
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		job, err := taskQueue.Dequeue(gctx, dequeueTimeout)
		if gctx.Err() != nil {
			sem.Release(1)
			break
		}
		if err != nil {
			sem.Release(1)
			logger.Error("failed to dequeue job", "error", err)
			// Back off so a broken broker does not spin the loop
			select {
			case <-gctx.Done():
			case <-time.After(dequeueTimeout):
			}
			continue
		}
		if job == nil {
			sem.Release(1)
			continue
		}

		g.Go(func() error {
			defer sem.Release(1)
			process(gctx, job)
			return nil
		})
	}

	return g.Wait()
}

// process runs one analysis. Failures are recorded on the task and logged;
// the job is never requeued.
func process(ctx context.Context, job *queue.Job) {
	// Detached from the shutdown signal: once a job is popped its analysis
	// runs to completion, bounded only by its own timeout.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), analysisTimeout)
	defer cancel()

	if err := service.Analyze(runCtx, job.TaskID, job.Owner, job.Repo, job.PRNumber); err != nil {
		logger.Error("analysis failed",
			"task_id", job.TaskID,
			"owner", job.Owner,
			"repo", job.Repo,
			"pr", job.PRNumber,
			"error", err,
		)
	}
}
