package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
)

const (
	defaultBaseURL = "https://api.github.com"

	// filesPerPage is the page size for the pull request files listing.
	// 100 is the API maximum.
	filesPerPage = 100
)

// ErrInvalidPullRequestURL indicates a pull request reference that cannot
// be parsed.
var ErrInvalidPullRequestURL = errors.New("invalid pull request URL")

// prURLPattern matches github.com/<owner>/<repo>/pull/<number> anywhere in
// the given string, so both bare and fully qualified URLs parse.
var prURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)`)

// ParsePullRequestURL extracts owner, repo, and number from a pull request
// URL such as https://github.com/golang/go/pull/12345.
func ParsePullRequestURL(raw string) (owner, repo string, number int, err error) {
	matches := prURLPattern.FindStringSubmatch(raw)
	if matches == nil {
		return "", "", 0, fmt.Errorf("%w: %q", ErrInvalidPullRequestURL, raw)
	}
	number, err = strconv.Atoi(matches[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %q", ErrInvalidPullRequestURL, raw)
	}
	return matches[1], matches[2], number, nil
}

// Client provides methods to fetch pull request data from the GitHub API.
// It authenticates with a personal access token, as a GitHub App, or not
// at all (public repositories only, under much stricter rate limits).
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	appID      int64
	privateKey []byte
}

// NewClient creates a client that authenticates with a personal access
// token. An empty token yields an unauthenticated client.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// NewAppClient creates a client that authenticates as a GitHub App.
// The privateKey should be the PEM-encoded private key of the GitHub App;
// the installation covering each repository is resolved on demand.
func NewAppClient(appID int64, privateKey []byte) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		appID:      appID,
		privateKey: privateKey,
	}
}

// FetchPullRequestFiles fetches the complete list of files changed in a
// pull request, following pagination so change sets of any size come back
// whole.
func (c *Client) FetchPullRequestFiles(ctx context.Context, owner, repo string, prNumber int) ([]PullRequestFile, error) {
	client, err := c.repoClient(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	var files []PullRequestFile
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			c.baseURL, owner, repo, prNumber, filesPerPage, page)
		pageFiles, err := c.fetchFilesPage(ctx, client, url)
		if err != nil {
			return nil, err
		}
		files = append(files, pageFiles...)
		if len(pageFiles) < filesPerPage {
			return files, nil
		}
	}
}

func (c *Client) fetchFilesPage(ctx context.Context, client *http.Client, url string) ([]PullRequestFile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch files: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch files: status %d, body: %s", resp.StatusCode, string(body))
	}

	var files []PullRequestFile
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}

	return files, nil
}

// repoClient returns the HTTP client to use for a repository: the shared
// client for token or anonymous access, or an installation-authenticated
// client when App credentials are configured.
func (c *Client) repoClient(ctx context.Context, owner, repo string) (*http.Client, error) {
	if c.appID == 0 {
		return c.httpClient, nil
	}

	installationID, err := c.resolveInstallation(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	transport, err := ghinstallation.New(http.DefaultTransport, c.appID, installationID, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport: %w", err)
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}, nil
}

// resolveInstallation looks up the App installation covering a repository.
func (c *Client) resolveInstallation(ctx context.Context, owner, repo string) (int64, error) {
	transport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, c.appID, c.privateKey)
	if err != nil {
		return 0, fmt.Errorf("failed to create app transport: %w", err)
	}
	client := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	url := fmt.Sprintf("%s/repos/%s/%s/installation", c.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve installation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("failed to resolve installation: status %d, body: %s", resp.StatusCode, string(body))
	}

	var installation Installation
	if err := json.NewDecoder(resp.Body).Decode(&installation); err != nil {
		return 0, fmt.Errorf("failed to decode installation: %w", err)
	}

	return installation.ID, nil
}
