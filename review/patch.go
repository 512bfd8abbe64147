// Package review implements the pull request review pipeline: token-budget
// patch organization, batch scheduling, and the workflow that sequences the
// model calls into a single coherent review.
package review

import (
	"path/filepath"
	"strings"
)

// LanguageUnknown is assigned to files whose extension has no mapping.
const LanguageUnknown = "unknown"

// languageByExtension maps file extensions to the language tag used for
// bucket grouping and for code fences in prompts.
var languageByExtension = map[string]string{
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
	".md":  "markdown",
	".txt": "text",
}

// DetectLanguage returns the language tag for a filename based on its
// extension. Unmapped or missing extensions yield LanguageUnknown.
func DetectLanguage(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	return LanguageUnknown
}

// FilePatch is the reviewable unit for one modified file in a change set.
//
// Content is immutable after construction. TokenCount is computed once by
// NewFilePatch and cached; every budgeting decision downstream reuses the
// cached value, so all components compare against the same counting policy.
type FilePatch struct {
	Filename   string
	Content    string
	Language   string
	TokenCount int
}

// NewFilePatch builds the patch record for one modified file, detecting the
// language from the filename and counting tokens with the supplied counter.
// Empty content (pure renames, binary files) counts as zero tokens.
func NewFilePatch(filename, content string, counter TokenCounter) *FilePatch {
	return &FilePatch{
		Filename:   filename,
		Content:    content,
		Language:   DetectLanguage(filename),
		TokenCount: counter.Count(content),
	}
}

// TotalTokens sums the cached token counts of a patch sequence.
func TotalTokens(patches []*FilePatch) int {
	total := 0
	for _, p := range patches {
		total += p.TokenCount
	}
	return total
}
