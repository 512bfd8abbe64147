// Package main runs a single pull request analysis locally, without the
// API server, queue, or database. Useful for trying budgets and prompts
// against a real PR before deploying.
//
// Usage:
//
//	ANTHROPIC_API_KEY=... patchpilot-local https://github.com/owner/repo/pull/123
//
// Environment variables:
//
//	ANTHROPIC_API_KEY  required, authenticates model calls
//	ANTHROPIC_MODEL    optional, overrides the default Claude model
//	GITHUB_TOKEN       optional, raises rate limits and reaches private repos
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/patchpilot/patchpilot/github"
	"github.com/patchpilot/patchpilot/review"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <pull-request-url>\n", os.Args[0])
		os.Exit(2)
	}

	if err := run(logger, os.Args[1]); err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, prURL string) error {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	owner, repo, prNumber, err := github.ParsePullRequestURL(prURL)
	if err != nil {
		return err
	}

	counter, err := review.NewTiktokenCounter()
	if err != nil {
		return fmt.Errorf("failed to load tokenizer: %w", err)
	}

	client := github.NewClient(os.Getenv("GITHUB_TOKEN"))
	invoker := review.NewClaudeInvoker(apiKey, os.Getenv("ANTHROPIC_MODEL"), logger)

	// No task store in local mode; Review never touches it.
	svc, err := review.NewService(client, nil, counter, invoker, review.DefaultLimits(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	logger.Info("fetching change set", "owner", owner, "repo", repo, "pr", prNumber)
	files, err := client.FetchPullRequestFiles(ctx, owner, repo, prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch pull request files: %w", err)
	}
	logger.Info("fetched change set", "files", len(files))

	text, err := svc.Review(ctx, files)
	if err != nil {
		return err
	}

	result := review.NormalizeResult(text)

	// Logs go to stderr; only the review itself lands on stdout.
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
