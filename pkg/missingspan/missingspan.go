// Package missingspan implements spec.md §4.8's recovery of the
// character ranges a Pass's preprocessor dropped entirely (as opposed
// to merely transforming): the gaps between consecutive preprocessed
// tokens, which should render as "not compared" rather than silently
// vanishing from every Comparison's ignored_spans.
package missingspan

import (
	"github.com/panbanda/simcheck/pkg/span"
	"github.com/panbanda/simcheck/pkg/submission"
	"github.com/panbanda/simcheck/pkg/token"
)

// Recover returns the maximal runs of character offsets within
// [unprocessed[0].Start, unprocessed[len-1].End) not covered by any
// token in preprocessed, per spec.md §4.8: sweep preprocessed in
// order emitting a Span for each gap, plus a trailing gap if the last
// preprocessed token ends before the last unprocessed token does.
func Recover(file *submission.File, unprocessed, preprocessed []token.Token) []span.Span {
	if len(unprocessed) == 0 {
		return nil
	}
	fileStart := unprocessed[0].Start
	fileEnd := unprocessed[len(unprocessed)-1].End

	var gaps []span.Span
	pos := fileStart
	for _, p := range preprocessed {
		if p.Start > pos {
			gaps = append(gaps, span.New(file, pos, p.Start))
		}
		if p.End > pos {
			pos = p.End
		}
	}
	if pos < fileEnd {
		gaps = append(gaps, span.New(file, pos, fileEnd))
	}
	return gaps
}
