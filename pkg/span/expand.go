package span

import (
	"sort"

	"github.com/panbanda/simcheck/pkg/token"
)

// Match is a pair of spans believed to contain equal content: the A
// side in one file, the B side in another, per spec.md §3's
// Comparison.span_matches.
type Match struct {
	A Span
	B Span
}

// intervalIndex is the sorted-by-start vector with binary-search
// probing spec.md §9 prescribes in place of a true interval tree: it
// is used only for the subsumption test in Expand.
type intervalIndex struct {
	spans []Span
}

// Contains reports whether some already-inserted interval contains s.
func (ix *intervalIndex) Contains(s Span) bool {
	idx := sort.Search(len(ix.spans), func(i int) bool { return ix.spans[i].Start > s.Start })
	for i := idx - 1; i >= 0; i-- {
		if ix.spans[i].End >= s.End {
			return true
		}
	}
	return false
}

// Insert adds s, keeping spans sorted by Start.
func (ix *intervalIndex) Insert(s Span) {
	idx := sort.Search(len(ix.spans), func(i int) bool { return ix.spans[i].Start >= s.Start })
	ix.spans = append(ix.spans, Span{})
	copy(ix.spans[idx+1:], ix.spans[idx:])
	ix.spans[idx] = s
}

// Expand grows each matching span pair maximally left and right while
// the adjacent tokens on both sides remain equal under Token.Equal,
// per spec.md §4.3. tokensA and tokensB must be sorted by Start and
// must be the full token lists of the files the A-side/B-side spans
// belong to. Expand is extensive (every returned pair contains its
// input pair) and idempotent (re-running it is a no-op).
func Expand(matches []Match, tokensA, tokensB []token.Token) []Match {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].A.Start != sorted[j].A.Start {
			return sorted[i].A.Start < sorted[j].A.Start
		}
		return sorted[i].B.Start < sorted[j].B.Start
	})

	treeA := &intervalIndex{}
	treeB := &intervalIndex{}
	seen := make(map[[4]int]bool)
	var out []Match

	for _, m := range sorted {
		if treeA.Contains(m.A) && treeB.Contains(m.B) {
			continue
		}

		startA, endA, okA := locate(tokensA, m.A)
		startB, endB, okB := locate(tokensB, m.B)
		if !okA || !okB {
			continue
		}

		for startA > 0 && startB > 0 && tokensA[startA-1].Equal(tokensB[startB-1]) {
			startA--
			startB--
		}
		for endA < len(tokensA)-1 && endB < len(tokensB)-1 && tokensA[endA+1].Equal(tokensB[endB+1]) {
			endA++
			endB++
		}

		expanded := Match{
			A: Span{File: m.A.File, Start: tokensA[startA].Start, End: tokensA[endA].End},
			B: Span{File: m.B.File, Start: tokensB[startB].Start, End: tokensB[endB].End},
		}

		key := [4]int{expanded.A.Start, expanded.A.End, expanded.B.Start, expanded.B.End}
		if !seen[key] {
			seen[key] = true
			out = append(out, expanded)
		}
		treeA.Insert(expanded.A)
		treeB.Insert(expanded.B)
	}
	return out
}

// locate finds the token indices whose offsets exactly match s's
// boundaries via binary search. Winnowing spans are always
// token-aligned (they span tokens [i, i+k-1] inclusive), so an exact
// match is expected; ok is false only if s doesn't align to this token
// list (e.g. a stale span from a different pipeline).
func locate(tokens []token.Token, s Span) (startIdx, endIdx int, ok bool) {
	si := sort.Search(len(tokens), func(i int) bool { return tokens[i].Start >= s.Start })
	if si >= len(tokens) || tokens[si].Start != s.Start {
		return 0, 0, false
	}
	ei := sort.Search(len(tokens), func(i int) bool { return tokens[i].End >= s.End })
	if ei >= len(tokens) || tokens[ei].End != s.End {
		return 0, 0, false
	}
	return si, ei, true
}
