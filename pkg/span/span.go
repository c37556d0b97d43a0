// Package span implements the Span type and the three span-level
// algorithms of spec.md §4.3-4.5: expansion, flattening, and grouping.
package span

import "github.com/panbanda/simcheck/pkg/submission"

// Span is a half-open character interval within one file. file is
// compared by pointer identity, matching spec.md §3's "file is
// hashable by identity".
type Span struct {
	File  *submission.File
	Start int
	End   int
}

// New constructs a Span, matching spec.md §3's invariant that 0 <=
// start <= end <= len(file.text) is the caller's responsibility.
func New(file *submission.File, start, end int) Span {
	return Span{File: file, Start: start, End: end}
}

// Contains reports whether s contains other: same file, s.Start <=
// other.Start, s.End >= other.End.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && s.Start <= other.Start && s.End >= other.End
}

// Len returns the span's length in characters.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether s and other share any character, same file.
func (s Span) Overlaps(other Span) bool {
	return s.File == other.File && s.Start < other.End && other.Start < s.End
}
