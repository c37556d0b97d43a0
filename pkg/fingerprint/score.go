package fingerprint

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// ScoreIndex is the "second, score-only index" spec.md §4.2 calls
// for: hash -> set<submission_id>, with no occurrence/Span data. It
// exists purely for cheap pairwise scoring across a whole corpus, so
// it uses a sparse, mergeable integer set (a Roaring bitmap) rather
// than the full SourcedFingerprint lists CompareIndex keeps — the same
// structure the teacher's HierarchicalBitSet (internal/analyzer/deadcode.go)
// uses for dense reachability sets, repurposed here for submission-id
// membership per hash.
type ScoreIndex struct {
	bySubmission map[Hash]*roaring.Bitmap
}

// NewScoreIndex creates an empty ScoreIndex.
func NewScoreIndex() *ScoreIndex {
	return &ScoreIndex{bySubmission: make(map[Hash]*roaring.Bitmap)}
}

// Include records that submission subID produced each of fps' hashes.
func (ix *ScoreIndex) Include(subID int, fps []SourcedFingerprint) {
	for _, fp := range fps {
		bm, ok := ix.bySubmission[fp.Hash]
		if !ok {
			bm = roaring.New()
			ix.bySubmission[fp.Hash] = bm
		}
		bm.Add(uint32(subID))
	}
}

// IgnoreHashes removes every hash in hashes from the index, per
// spec.md §4.2's ignore semantics applied to the score-only index.
func (ix *ScoreIndex) IgnoreHashes(hashes []Hash) {
	for _, h := range hashes {
		delete(ix.bySubmission, h)
	}
}

// Submissions returns the bitmap of submission ids recorded for hash
// h, or nil if h is unindexed (or was ignored).
func (ix *ScoreIndex) Submissions(h Hash) *roaring.Bitmap {
	return ix.bySubmission[h]
}

// Hashes returns every distinct hash currently indexed, in no
// particular order.
func (ix *ScoreIndex) Hashes() []Hash {
	out := make([]Hash, 0, len(ix.bySubmission))
	for h := range ix.bySubmission {
		out = append(out, h)
	}
	return out
}
