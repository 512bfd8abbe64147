package review

import (
	"fmt"
	"testing"
)

func TestChunkPatches(t *testing.T) {
	tests := []struct {
		name       string
		tokens     []int
		budget     int
		wantChunks [][]int
	}{
		{
			name:       "single patch under budget",
			tokens:     []int{500},
			budget:     1500,
			wantChunks: [][]int{{500}},
		},
		{
			name:       "all patches fit one chunk",
			tokens:     []int{400, 500, 600},
			budget:     1500,
			wantChunks: [][]int{{400, 500, 600}},
		},
		{
			name:       "patch landing exactly on budget is admitted",
			tokens:     []int{700, 800},
			budget:     1500,
			wantChunks: [][]int{{700, 800}},
		},
		{
			name:       "patch pushing over budget starts a new chunk",
			tokens:     []int{800, 800, 800},
			budget:     1500,
			wantChunks: [][]int{{800}, {800}, {800}},
		},
		{
			name:       "small patches pack after a close",
			tokens:     []int{1000, 600, 400, 400},
			budget:     1500,
			wantChunks: [][]int{{1000}, {600, 400, 400}},
		},
		{
			name:       "zero token patches join the open chunk",
			tokens:     []int{1500, 0, 0},
			budget:     1500,
			wantChunks: [][]int{{1500, 0, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches := make([]*FilePatch, len(tt.tokens))
			for i, n := range tt.tokens {
				patches[i] = makePatch(fmt.Sprintf("file%d.py", i), n)
			}

			chunks := ChunkPatches(patches, tt.budget)

			if len(chunks) != len(tt.wantChunks) {
				t.Fatalf("ChunkPatches() got %d chunks, want %d", len(chunks), len(tt.wantChunks))
			}
			for i, chunk := range chunks {
				want := tt.wantChunks[i]
				if len(chunk.Files) != len(want) {
					t.Fatalf("chunk %d got %d files, want %d", i, len(chunk.Files), len(want))
				}
				total := 0
				for j, f := range chunk.Files {
					if f.TokenCount != want[j] {
						t.Errorf("chunk %d file %d = %d tokens, want %d", i, j, f.TokenCount, want[j])
					}
					total += f.TokenCount
				}
				if chunk.TokenCount != total {
					t.Errorf("chunk %d TokenCount = %d, want %d", i, chunk.TokenCount, total)
				}
			}
		})
	}
}

func TestChunkPatches_PreservesOrder(t *testing.T) {
	patches := []*FilePatch{
		makePatch("a.py", 700),
		makePatch("b.js", 700),
		makePatch("c.py", 700),
		makePatch("d.md", 700),
	}

	chunks := ChunkPatches(patches, 1500)

	var got []string
	for _, chunk := range chunks {
		for _, f := range chunk.Files {
			got = append(got, f.Filename)
		}
	}
	want := []string{"a.py", "b.js", "c.py", "d.md"}
	if len(got) != len(want) {
		t.Fatalf("got %d files across chunks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunkPatches_OversizedPatch(t *testing.T) {
	patches := []*FilePatch{
		makePatch("small.py", 100),
		makePatch("huge.py", 2000),
		makePatch("tail.py", 100),
	}

	chunks := ChunkPatches(patches, 1500)

	if len(chunks) != 3 {
		t.Fatalf("ChunkPatches() got %d chunks, want 3", len(chunks))
	}
	if len(chunks[1].Files) != 1 || chunks[1].Files[0].Filename != "huge.py" {
		t.Fatalf("oversized patch should occupy its own chunk, got %d files", len(chunks[1].Files))
	}
	if chunks[1].TokenCount != 2000 {
		t.Errorf("oversized chunk TokenCount = %d, want 2000", chunks[1].TokenCount)
	}
}

func TestChunkPatches_Empty(t *testing.T) {
	chunks := ChunkPatches(nil, 1500)
	if chunks != nil {
		t.Errorf("ChunkPatches(nil) = %v, want nil", chunks)
	}
}
