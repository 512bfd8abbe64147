package review

import "testing"

// byteCounter counts one token per byte so tests control token counts
// exactly through content length.
type byteCounter struct{}

func (byteCounter) Count(text string) int { return len(text) }

// makePatch builds a patch with a fixed token count for budgeting tests
// that never look at content.
func makePatch(filename string, tokens int) *FilePatch {
	return &FilePatch{
		Filename:   filename,
		Language:   DetectLanguage(filename),
		TokenCount: tokens,
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"main.py", "python"},
		{"app.js", "javascript"},
		{"component.jsx", "javascript"},
		{"server.ts", "typescript"},
		{"view.tsx", "typescript"},
		{"README.md", "markdown"},
		{"notes.txt", "text"},
		{"src/deep/path/model.py", "python"},
		{"STYLES.PY", "python"},
		{"main.go", "unknown"},
		{"Makefile", "unknown"},
		{"archive.tar.gz", "unknown"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectLanguage(tt.filename); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestNewFilePatch(t *testing.T) {
	p := NewFilePatch("handler.py", "def handle():\n    pass\n", byteCounter{})

	if p.Filename != "handler.py" {
		t.Errorf("Filename = %q, want %q", p.Filename, "handler.py")
	}
	if p.Language != "python" {
		t.Errorf("Language = %q, want %q", p.Language, "python")
	}
	if p.TokenCount != len(p.Content) {
		t.Errorf("TokenCount = %d, want %d", p.TokenCount, len(p.Content))
	}
}

func TestNewFilePatch_EmptyContent(t *testing.T) {
	p := NewFilePatch("renamed.py", "", byteCounter{})
	if p.TokenCount != 0 {
		t.Errorf("TokenCount = %d, want 0", p.TokenCount)
	}
}

func TestTotalTokens(t *testing.T) {
	tests := []struct {
		name   string
		tokens []int
		want   int
	}{
		{"empty", nil, 0},
		{"single", []int{42}, 42},
		{"several", []int{100, 250, 7}, 357},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches := make([]*FilePatch, len(tt.tokens))
			for i, n := range tt.tokens {
				patches[i] = makePatch("f.py", n)
			}
			if got := TotalTokens(patches); got != tt.want {
				t.Errorf("TotalTokens() = %d, want %d", got, tt.want)
			}
		})
	}
}
