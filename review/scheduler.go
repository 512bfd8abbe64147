package review

// BatchScheduler drains the language buckets produced by OrganizePatches
// into budget-bounded batches.
//
// Buckets are visited in first-seen language order. Each call pops patches
// from the front of a bucket while the batch stays within budget, then
// moves to the next bucket, so a batch holds same-language content when it
// can while still crossing languages to fill remaining room.
type BatchScheduler struct {
	buckets   map[string][]*FilePatch
	languages []string
	budget    int
}

// NewBatchScheduler creates a scheduler over the given groups. The
// scheduler consumes the bucket queues as it goes; the groups' overflow is
// untouched.
func NewBatchScheduler(groups *PatchGroups, batchBudget int) *BatchScheduler {
	buckets := make(map[string][]*FilePatch, len(groups.Buckets))
	for lang, patches := range groups.Buckets {
		buckets[lang] = patches
	}
	return &BatchScheduler{
		buckets:   buckets,
		languages: groups.Languages,
		budget:    batchBudget,
	}
}

// NextBatch extracts one batch. An empty result means every bucket is
// drained and scheduling is complete.
//
// A patch that exceeds the whole budget on its own is returned as a
// singleton batch the moment it reaches the front while the batch is still
// empty. That is the only way a batch exceeds the budget, and it
// guarantees every call with queued patches extracts at least one.
func (s *BatchScheduler) NextBatch() []*FilePatch {
	var batch []*FilePatch
	total := 0

	for _, lang := range s.languages {
		queue := s.buckets[lang]
		for len(queue) > 0 {
			head := queue[0]
			if len(batch) == 0 && head.TokenCount > s.budget {
				s.buckets[lang] = queue[1:]
				return []*FilePatch{head}
			}
			if total+head.TokenCount > s.budget {
				break
			}
			batch = append(batch, head)
			total += head.TokenCount
			queue = queue[1:]
		}
		s.buckets[lang] = queue
	}

	return batch
}

// Remaining reports how many patches are still queued across all buckets.
func (s *BatchScheduler) Remaining() int {
	n := 0
	for _, queue := range s.buckets {
		n += len(queue)
	}
	return n
}
