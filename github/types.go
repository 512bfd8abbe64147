// Package github provides the GitHub API client used to fetch pull request
// change sets.
package github

// PullRequestFile represents a file changed in a pull request.
type PullRequestFile struct {
	SHA              string `json:"sha"`
	Filename         string `json:"filename"`
	Status           string `json:"status"` // added, removed, modified, renamed, copied, changed, unchanged
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	Patch            string `json:"patch,omitempty"`
	PreviousFilename string `json:"previous_filename,omitempty"`
}

// IsRemoved reports whether the change deletes the file entirely. The API
// reports removals as "removed"; "deleted" is accepted for other diff
// sources that feed the same type.
func (f PullRequestFile) IsRemoved() bool {
	return f.Status == "removed" || f.Status == "deleted"
}

// Installation represents a GitHub App installation.
type Installation struct {
	ID int64 `json:"id"`
}
