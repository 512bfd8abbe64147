package review

import "sort"

// PatchGroups holds the outcome of organizing a change set under the
// primary budget: per-language buckets destined for batch review, plus the
// overflow that only gets summarized.
type PatchGroups struct {
	// Buckets maps a language tag to its queue of admitted patches,
	// largest first.
	Buckets map[string][]*FilePatch
	// Languages lists the bucket keys in the order each language was first
	// admitted. Iterating buckets through this list keeps batch scheduling
	// deterministic.
	Languages []string
	// Overflow holds the patches that did not fit the primary budget, in
	// the order they were rejected.
	Overflow []*FilePatch
}

// TotalBucketed returns the number of patches across all buckets.
func (g *PatchGroups) TotalBucketed() int {
	n := 0
	for _, patches := range g.Buckets {
		n += len(patches)
	}
	return n
}

// OrganizePatches partitions patches into language buckets whose combined
// token count stays within primaryBudget, and an overflow list for
// everything else.
//
// Patches are considered largest-first (stable, so equal sizes keep their
// input order) and each is admitted only if the running total stays within
// budget. A smaller patch can still be admitted after a larger one
// overflowed. This is a single greedy pass, not optimal packing: it spends
// the budget on the largest changes first and accepts that the admitted
// set may land under budget where a different packing would have filled it.
func OrganizePatches(patches []*FilePatch, primaryBudget int) *PatchGroups {
	groups := &PatchGroups{
		Buckets: make(map[string][]*FilePatch),
	}

	sorted := make([]*FilePatch, len(patches))
	copy(sorted, patches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TokenCount > sorted[j].TokenCount
	})

	total := 0
	for _, patch := range sorted {
		if total+patch.TokenCount > primaryBudget {
			groups.Overflow = append(groups.Overflow, patch)
			continue
		}
		if _, seen := groups.Buckets[patch.Language]; !seen {
			groups.Languages = append(groups.Languages, patch.Language)
		}
		groups.Buckets[patch.Language] = append(groups.Buckets[patch.Language], patch)
		total += patch.TokenCount
	}

	return groups
}
