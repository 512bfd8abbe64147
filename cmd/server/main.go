// Package main provides the PatchPilot API server.
//
// The server accepts pull request analysis requests, records them as
// tasks, and queues them for the worker. It never calls the model itself.
//
// Configuration via environment variables:
//
//	DATABASE_URL       - PostgreSQL connection string (required)
//	REDIS_URL          - Redis connection string for the job queue (required)
//	ANTHROPIC_API_KEY  - Anthropic API key for Claude (required)
//	GITHUB_TOKEN       - GitHub personal access token (optional)
//	GITHUB_APP_ID      - GitHub App ID (optional, with GITHUB_PRIVATE_KEY)
//	GITHUB_PRIVATE_KEY - GitHub App private key in PEM format
//	PORT               - HTTP server port (default: 8080)
//	CONFIG_FILE        - optional YAML file with the same settings
//
// Usage:
//
//	go run cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/patchpilot/patchpilot/config"
	"github.com/patchpilot/patchpilot/github"
	"github.com/patchpilot/patchpilot/queue"
	"github.com/patchpilot/patchpilot/storage"
	"github.com/patchpilot/patchpilot/storage/postgres"
)

var (
	logger    *slog.Logger
	cfg       *config.Config
	pgStorage *postgres.PostgreSQL
	taskQueue *queue.Queue
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

	// Set up routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze-pr", handleAnalyzePR)
	mux.HandleFunc("GET /status/{id}", handleStatus)
	mux.HandleFunc("GET /results/{id}", handleResults)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/", handleRoot)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func initialize() error {
	var err error
	cfg, err = config.Load(os.Getenv("CONFIG_FILE"))
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

	// Run migrations
	if err := pgStorage.Migrate(context.Background()); err != nil {
		return err
	}

	// Connect the job queue
	taskQueue, err = queue.NewFromURL(context.Background(), cfg.RedisURL, cfg.QueueKey)
	if err != nil {
		return err
	}

	logger.Info("initialized", "port", cfg.Port)
	return nil
}

// analyzePRRequest is the body of POST /analyze-pr.
type analyzePRRequest struct {
	PRURL string `json:"pr_url"`
}

func handleAnalyzePR(w http.ResponseWriter, r *http.Request) {
	var req analyzePRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	owner, repo, prNumber, err := github.ParsePullRequestURL(req.PRURL)
	if err != nil {
		logger.Warn("rejected analysis request", "pr_url", req.PRURL, "error", err)
		http.Error(w, "invalid GitHub PR URL", http.StatusBadRequest)
		return
	}

	task := &storage.AnalysisTask{
		ID:       uuid.NewString(),
		Owner:    owner,
		Repo:     repo,
		PRNumber: prNumber,
		Status:   storage.StatusPending,
	}

	ctx := r.Context()
	if err := pgStorage.CreateTask(ctx, task); err != nil {
		logger.Error("failed to create task", "error", err)
		http.Error(w, "failed to create task", http.StatusInternalServerError)
		return
	}

	job := &queue.Job{
		TaskID:   task.ID,
		Owner:    owner,
		Repo:     repo,
		PRNumber: prNumber,
	}
	if err := taskQueue.Enqueue(ctx, job); err != nil {
		logger.Error("failed to enqueue job", "task_id", task.ID, "error", err)
		// The task row exists but no worker will ever see it; mark it
		// failed so clients are not left polling a task that never runs.
		if failErr := pgStorage.FailTask(ctx, task.ID, "failed to enqueue analysis job"); failErr != nil {
			logger.Error("failed to mark task failed", "task_id", task.ID, "error", failErr)
		}
		http.Error(w, "failed to enqueue analysis", http.StatusInternalServerError)
		return
	}

	logger.Info("analysis task created",
		"task_id", task.ID,
		"owner", owner,
		"repo", repo,
		"pr", prNumber,
	)

	jsonResponse(w, http.StatusAccepted, map[string]string{
		"task_id": task.ID,
		"message": "analysis started",
	})
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := lookupTask(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"task_id": task.ID,
		"status":  task.Status,
	})
}

func handleResults(w http.ResponseWriter, r *http.Request) {
	task, ok := lookupTask(w, r)
	if !ok {
		return
	}
	if task.Status != storage.StatusSuccess {
		http.Error(w, "task is not completed yet", http.StatusBadRequest)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"task_id": task.ID,
		"results": task.Result,
	})
}

// lookupTask fetches the task addressed by the request path, writing the
// error response itself when the task cannot be served.
func lookupTask(w http.ResponseWriter, r *http.Request) (*storage.AnalysisTask, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		// Malformed IDs would otherwise surface as database errors.
		http.Error(w, "task not found", http.StatusNotFound)
		return nil, false
	}
	task, err := pgStorage.GetTask(r.Context(), id)
	if err != nil {
		logger.Error("failed to get task", "task_id", id, "error", err)
		http.Error(w, "failed to get task", http.StatusInternalServerError)
		return nil, false
	}
	if task == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return nil, false
	}
	return task, true
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"name":   "PatchPilot",
		"status": "running",
	})
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
