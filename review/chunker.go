package review

// Chunk is an ordered group of overflow patches summarized in one model
// call.
type Chunk struct {
	Files      []*FilePatch
	TokenCount int
}

// ChunkPatches splits overflow patches into chunks whose token totals stay
// within chunkBudget, preserving input order.
//
// A patch that lands the open chunk exactly on budget is admitted. A patch
// that would push the open chunk over budget closes it and starts a new
// one. A single patch larger than the budget still gets its own
// over-budget chunk rather than being dropped: every overflow file must
// reach a summary call, even a pathological one.
func ChunkPatches(patches []*FilePatch, chunkBudget int) []Chunk {
	var chunks []Chunk
	var current Chunk

	for _, patch := range patches {
		if len(current.Files) > 0 && current.TokenCount+patch.TokenCount > chunkBudget {
			chunks = append(chunks, current)
			current = Chunk{}
		}
		current.Files = append(current.Files, patch)
		current.TokenCount += patch.TokenCount
	}

	if len(current.Files) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}
