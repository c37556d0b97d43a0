package engine

import (
	"container/heap"
	"sort"

	"github.com/panbanda/simcheck/pkg/compare"
)

// scoredEntry pairs a Score with its position in the original scores
// slice, so ties can break "stable by first occurrence" per spec.md §9
// Open Question (b).
type scoredEntry struct {
	compare.Score
	order int
}

// minHeap is a bounded min-heap over scoredEntry: heap.Pop always
// evicts the lowest-value (or, on a tie, most-recently-seen) entry
// first, so the N entries retained after every candidate has been
// pushed are exactly the top N by (value desc, first-occurrence asc).
type minHeap []scoredEntry

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].Value != h[j].Value {
		return h[i].Value < h[j].Value
	}
	return h[i].order > h[j].order
}
func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)   { *h = append(*h, x.(scoredEntry)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// SelectTopN implements spec.md §4.9's top-N ranking: self-matches
// (pairs sharing a submitter identity, i.e. a submission compared
// against itself under another name) are discarded, and the N
// highest-scoring remaining pairs are returned via a bounded min-heap,
// ties broken toward whichever pair occurred earliest in scores.
func SelectTopN(scores []compare.Score, n int) []compare.Score {
	if n <= 0 {
		return nil
	}
	h := &minHeap{}
	heap.Init(h)
	for i, s := range scores {
		if s.SubA.Identity() == s.SubB.Identity() {
			continue
		}
		heap.Push(h, scoredEntry{Score: s, order: i})
		if h.Len() > n {
			heap.Pop(h)
		}
	}

	kept := make([]scoredEntry, len(*h))
	copy(kept, *h)
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Value != kept[j].Value {
			return kept[i].Value > kept[j].Value
		}
		return kept[i].order < kept[j].order
	})

	out := make([]compare.Score, len(kept))
	for i, e := range kept {
		out[i] = e.Score
	}
	return out
}
