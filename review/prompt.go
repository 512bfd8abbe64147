package review

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are PR-Reviewer, an advanced model designed to provide precise, constructive feedback and actionable code improvement suggestions for Git pull requests. Your primary task is to analyze the PR diff (lines prefixed with +) and offer meaningful insights that improve code quality and address potential issues.

Guidelines:
1. Focus areas:
- Identify and address code problems, bugs, error handling gaps, or logical issues.
- Suggest improvements for performance, modularity, and adherence to best practices.
- Ensure your feedback is relevant and avoids duplicating changes already implemented in the PR.
2. Avoid suggesting docstrings, type hints, or comments unless absolutely necessary.
3. Keep feedback concise and actionable.

Security analysis:
- Check for vulnerabilities such as sensitive information exposure, SQL injection, cross-site scripting (XSS), or other security risks.
- If a vulnerability is detected, begin with a header (for example "Sensitive information exposure: ...") and provide a clear explanation of the issue along with mitigation strategies.
- If no vulnerabilities are found for a file, do not mention that file in the security analysis.

Respond strictly in the following JSON format:
{
  "files": [
    {
      "name": "filename",
      "issues": [
        {
          "type": "issue_type",
          "line": line_number,
          "description": "Detailed description of the issue.",
          "suggestion": "Actionable suggestion to resolve the issue."
        }
      ],
      "code_suggestions": [
        {
          "line": line_number,
          "suggestion": "Actionable suggestion to improve the code."
        }
      ],
      "security_analysis": "No vulnerabilities detected, or a detailed explanation of the vulnerabilities found."
    }
  ]
}`

const shortReviewPromptTemplate = `Review the following PR changes:

%s

Deleted files:
%s

Please provide:
1. A summary of the changes
2. Potential issues or concerns
3. Suggestions for improvement
4. Overall assessment`

const batchReviewPromptTemplate = `Review this batch of files from a larger PR:

%s

Focus on:
1. Key changes and their impact
2. Potential issues
3. Specific suggestions for this batch`

const chunkSummaryPromptTemplate = `Provide a brief summary of these additional modified files:

%s

Focus on:
1. Key changes (2-3 sentences per file)
2. Any potential risks or concerns`

const finalReviewPromptTemplate = `Synthesize the PR review into a cohesive final review:

Main Review Segments:
%s

Additional Modified Files Summary:
%s

Deleted Files:
%s

Provide:
1. Overall summary of changes
2. Key concerns across all segments
3. Major recommendations
4. Final assessment`

// FormatPatch renders one patch for a prompt: a header naming the file and
// its language, then the content in a code fence tagged with the language.
func FormatPatch(p *FilePatch) string {
	return fmt.Sprintf("File: %s (%s)\n```%s\n%s\n```", p.Filename, p.Language, p.Language, p.Content)
}

// FormatPatches renders a patch sequence separated by blank lines.
func FormatPatches(patches []*FilePatch) string {
	parts := make([]string, len(patches))
	for i, p := range patches {
		parts[i] = FormatPatch(p)
	}
	return strings.Join(parts, "\n\n")
}

// formatDeletedFiles renders the deleted-file list as bullet lines.
func formatDeletedFiles(deleted []string) string {
	if len(deleted) == 0 {
		return "(No deleted files)"
	}
	lines := make([]string, len(deleted))
	for i, name := range deleted {
		lines[i] = "- " + name
	}
	return strings.Join(lines, "\n")
}

// BuildShortReviewMessages builds the single-call prompt covering the whole
// change set plus the deleted-file list.
func BuildShortReviewMessages(files []*FilePatch, deleted []string) []Message {
	prompt := fmt.Sprintf(shortReviewPromptTemplate, FormatPatches(files), formatDeletedFiles(deleted))
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: prompt},
	}
}

// BuildBatchReviewMessages builds the prompt for one scheduled batch.
func BuildBatchReviewMessages(batch []*FilePatch) []Message {
	return []Message{
		{Role: RoleUser, Content: fmt.Sprintf(batchReviewPromptTemplate, FormatPatches(batch))},
	}
}

// BuildChunkSummaryMessages builds the prompt summarizing one overflow
// chunk.
func BuildChunkSummaryMessages(chunk Chunk) []Message {
	return []Message{
		{Role: RoleUser, Content: fmt.Sprintf(chunkSummaryPromptTemplate, FormatPatches(chunk.Files))},
	}
}

// BuildFinalReviewMessages builds the synthesis prompt that merges the
// batch reviews, the overflow summaries, and the deleted-file list into
// one final review request.
func BuildFinalReviewMessages(batchReviews, overflowSummaries, deleted []string) []Message {
	segments := strings.Join(batchReviews, "\n\n---\n\n")

	summaries := "No additional files to summarize."
	if len(overflowSummaries) > 0 {
		summaries = strings.Join(overflowSummaries, "\n\n")
	}

	prompt := fmt.Sprintf(finalReviewPromptTemplate, segments, summaries, formatDeletedFiles(deleted))
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: prompt},
	}
}
