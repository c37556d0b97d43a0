package fingerprint

// CompareIndex maps hash -> every occurrence that produced it,
// duplicates and insertion order preserved, per spec.md §4.2's
// CompareIndex data structure. It backs the in-depth comparator: given
// two submissions' indexed occurrences, hashes shared by both name the
// matching span pairs.
type CompareIndex struct {
	byHash map[Hash][]SourcedFingerprint
}

// NewCompareIndex creates an empty CompareIndex.
func NewCompareIndex() *CompareIndex {
	return &CompareIndex{byHash: make(map[Hash][]SourcedFingerprint)}
}

// Insert appends fingerprints under their hash, without recomputing
// them. CompareIndex has no method that fingerprints a token stream
// itself: callers pass fingerprints they already hold (e.g. a
// comparator sharing one Winnow pass between its score and compare
// indexes).
func (ix *CompareIndex) Insert(fps []SourcedFingerprint) {
	for _, fp := range fps {
		ix.byHash[fp.Hash] = append(ix.byHash[fp.Hash], fp)
	}
}

// IgnoreHashes removes every entry whose hash is in hashes, per
// spec.md §4.2's ignore/ignore_all operation.
func (ix *CompareIndex) IgnoreHashes(hashes []Hash) {
	for _, h := range hashes {
		delete(ix.byHash, h)
	}
}

// IgnoreAll removes from ix every entry whose hash appears as a key in
// other, matching spec.md §4.2's ignore_all(other_index).
func (ix *CompareIndex) IgnoreAll(other *CompareIndex) {
	for h := range other.byHash {
		delete(ix.byHash, h)
	}
}

// Lookup returns the occurrences recorded under h, or nil.
func (ix *CompareIndex) Lookup(h Hash) []SourcedFingerprint {
	return ix.byHash[h]
}

// Has reports whether h has any recorded occurrence.
func (ix *CompareIndex) Has(h Hash) bool {
	_, ok := ix.byHash[h]
	return ok
}

// Hashes returns every distinct hash currently indexed, in no
// particular order.
func (ix *CompareIndex) Hashes() []Hash {
	out := make([]Hash, 0, len(ix.byHash))
	for h := range ix.byHash {
		out = append(out, h)
	}
	return out
}

// Len returns the number of distinct hashes indexed.
func (ix *CompareIndex) Len() int {
	return len(ix.byHash)
}
