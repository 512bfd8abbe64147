package review

import (
	"strings"
	"testing"
)

func TestFormatPatch(t *testing.T) {
	p := &FilePatch{
		Filename: "app/main.py",
		Content:  "+import os\n+print(os.getcwd())",
		Language: "python",
	}

	got := FormatPatch(p)
	want := "File: app/main.py (python)\n```python\n+import os\n+print(os.getcwd())\n```"
	if got != want {
		t.Errorf("FormatPatch() = %q, want %q", got, want)
	}
}

func TestFormatPatches(t *testing.T) {
	patches := []*FilePatch{
		{Filename: "a.py", Content: "+a", Language: "python"},
		{Filename: "b.js", Content: "+b", Language: "javascript"},
	}

	got := FormatPatches(patches)

	if !strings.Contains(got, "File: a.py (python)") {
		t.Error("missing first patch header")
	}
	if !strings.Contains(got, "File: b.js (javascript)") {
		t.Error("missing second patch header")
	}
	if !strings.Contains(got, "```\n\nFile: b.js") {
		t.Error("patches should be separated by a blank line")
	}
}

func TestBuildShortReviewMessages(t *testing.T) {
	tests := []struct {
		name         string
		deleted      []string
		wantContains []string
	}{
		{
			name:    "with deleted files",
			deleted: []string{"old.py", "legacy.js"},
			wantContains: []string{
				"Review the following PR changes",
				"File: main.py (python)",
				"- old.py",
				"- legacy.js",
				"Overall assessment",
			},
		},
		{
			name:    "no deleted files",
			deleted: nil,
			wantContains: []string{
				"(No deleted files)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := []*FilePatch{{Filename: "main.py", Content: "+x = 1", Language: "python"}}
			messages := BuildShortReviewMessages(files, tt.deleted)

			if len(messages) != 2 {
				t.Fatalf("got %d messages, want 2", len(messages))
			}
			if messages[0].Role != RoleSystem {
				t.Errorf("messages[0].Role = %q, want %q", messages[0].Role, RoleSystem)
			}
			if !strings.Contains(messages[0].Content, "PR-Reviewer") {
				t.Error("system message is missing the reviewer persona")
			}
			if messages[1].Role != RoleUser {
				t.Errorf("messages[1].Role = %q, want %q", messages[1].Role, RoleUser)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(messages[1].Content, want) {
					t.Errorf("user message missing %q", want)
				}
			}
		})
	}
}

func TestBuildBatchReviewMessages(t *testing.T) {
	batch := []*FilePatch{{Filename: "svc.ts", Content: "+let x", Language: "typescript"}}
	messages := BuildBatchReviewMessages(batch)

	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].Role != RoleUser {
		t.Errorf("Role = %q, want %q", messages[0].Role, RoleUser)
	}
	for _, want := range []string{
		"Review this batch of files from a larger PR",
		"File: svc.ts (typescript)",
		"Specific suggestions for this batch",
	} {
		if !strings.Contains(messages[0].Content, want) {
			t.Errorf("batch message missing %q", want)
		}
	}
}

func TestBuildChunkSummaryMessages(t *testing.T) {
	chunk := Chunk{
		Files:      []*FilePatch{{Filename: "notes.md", Content: "+## Title", Language: "markdown"}},
		TokenCount: 3,
	}
	messages := BuildChunkSummaryMessages(chunk)

	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].Role != RoleUser {
		t.Errorf("Role = %q, want %q", messages[0].Role, RoleUser)
	}
	for _, want := range []string{
		"brief summary of these additional modified files",
		"File: notes.md (markdown)",
	} {
		if !strings.Contains(messages[0].Content, want) {
			t.Errorf("chunk message missing %q", want)
		}
	}
}

func TestBuildFinalReviewMessages(t *testing.T) {
	tests := []struct {
		name         string
		batchReviews []string
		summaries    []string
		deleted      []string
		wantContains []string
	}{
		{
			name:         "full staged run",
			batchReviews: []string{"batch one findings", "batch two findings"},
			summaries:    []string{"summary one", "summary two"},
			deleted:      []string{"dead.py"},
			wantContains: []string{
				"Synthesize the PR review",
				"batch one findings\n\n---\n\nbatch two findings",
				"summary one\n\nsummary two",
				"- dead.py",
				"Final assessment",
			},
		},
		{
			name:         "no overflow summaries",
			batchReviews: []string{"only batch"},
			summaries:    nil,
			deleted:      nil,
			wantContains: []string{
				"only batch",
				"No additional files to summarize.",
				"(No deleted files)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := BuildFinalReviewMessages(tt.batchReviews, tt.summaries, tt.deleted)

			if len(messages) != 2 {
				t.Fatalf("got %d messages, want 2", len(messages))
			}
			if messages[0].Role != RoleSystem {
				t.Errorf("messages[0].Role = %q, want %q", messages[0].Role, RoleSystem)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(messages[1].Content, want) {
					t.Errorf("user message missing %q", want)
				}
			}
		})
	}
}

func TestFormatDeletedFiles(t *testing.T) {
	tests := []struct {
		name    string
		deleted []string
		want    string
	}{
		{"empty", nil, "(No deleted files)"},
		{"single", []string{"a.py"}, "- a.py"},
		{"several", []string{"a.py", "b.js"}, "- a.py\n- b.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDeletedFiles(tt.deleted); got != tt.want {
				t.Errorf("formatDeletedFiles() = %q, want %q", got, tt.want)
			}
		})
	}
}
