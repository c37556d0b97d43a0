package span

import (
	"sort"

	"github.com/panbanda/simcheck/pkg/submission"
)

// Flatten collapses possibly-overlapping spans (all assumed to share a
// file) into the minimum list of non-overlapping spans with the same
// point-set union, per spec.md §4.4: sort by start, sweep the current
// open interval, emit when the next span starts strictly after the
// current ends, otherwise extend to the larger end.
//
// Flatten is idempotent: Flatten(Flatten(x)) == Flatten(x).
func Flatten(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := make([]Span, 0, len(sorted))
	current := sorted[0]
	for _, s := range sorted[1:] {
		if s.Start > current.End {
			out = append(out, current)
			current = s
			continue
		}
		if s.End > current.End {
			current.End = s.End
		}
	}
	out = append(out, current)
	return out
}

// FlattenByFile groups spans by file before flattening each group
// independently, for callers holding spans from more than one file.
func FlattenByFile(spans []Span) []Span {
	byFile := make(map[*submission.File][]Span)
	var order []*submission.File
	for _, s := range spans {
		if _, ok := byFile[s.File]; !ok {
			order = append(order, s.File)
		}
		byFile[s.File] = append(byFile[s.File], s)
	}
	var out []Span
	for _, f := range order {
		out = append(out, Flatten(byFile[f])...)
	}
	return out
}
