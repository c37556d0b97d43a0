// Package uniqueness implements spec.md §4.7's uniqueness explainer:
// it annotates each matched Group's spans with how rare the matching
// content is across the corpus, so a renderer can visually distinguish
// "everyone writes `for i in range(n)` this way" from a truly
// distinctive shared fragment.
package uniqueness

import (
	"fmt"
	"math"

	"github.com/panbanda/simcheck/pkg/compare"
	"github.com/panbanda/simcheck/pkg/span"
	"github.com/panbanda/simcheck/pkg/submission"
)

// Explanation is spec.md §3's per-span uniqueness annotation.
type Explanation struct {
	Span   span.Span
	Text   string
	Weight float64
}

// Explainer owns the single, serially-built index spec.md §4.7 and §5
// require: a count, per fingerprint hash, of how many distinct
// submissions (including archives) produced it, excluding any hash an
// ignored (distro) file also produced.
type Explainer struct {
	nWithFP map[uint64]int
	total   int
	exposer compare.FingerprintExposer
}

// New builds an Explainer from exposer's already-indexed submissions.
// exposer must have had Index called for every regular submission
// (including archives) and IgnoreSubmission for every distro file
// before New is called, matching spec.md §5's "the structure Pass is
// serial" requirement — there must be exactly one FingerprintExposer
// instance, populated by a single, non-concurrent pass over the
// corpus.
func New(exposer compare.FingerprintExposer, submissions []submission.Submission) *Explainer {
	seenBySubmission := make(map[uint64]map[int]bool)
	for _, sub := range submissions {
		seen := make(map[uint64]bool)
		for _, ff := range exposer.FingerprintsForSubmission(sub) {
			for _, fp := range ff.Fingerprints {
				if exposer.IsIgnored(fp.Hash) || seen[fp.Hash] {
					continue
				}
				seen[fp.Hash] = true
				if seenBySubmission[fp.Hash] == nil {
					seenBySubmission[fp.Hash] = make(map[int]bool)
				}
				seenBySubmission[fp.Hash][sub.SubmissionID()] = true
			}
		}
	}

	nWithFP := make(map[uint64]int, len(seenBySubmission))
	for hash, subs := range seenBySubmission {
		nWithFP[hash] = len(subs)
	}

	return &Explainer{nWithFP: nWithFP, total: len(submissions), exposer: exposer}
}

// Explain attaches an Explanation to every span of every group whose
// matched range contains at least one non-ignored fingerprint, per
// spec.md §4.7. A Group span with no qualifying fingerprint (e.g. too
// short to contain a full k-gram) gets no entry.
func (e *Explainer) Explain(groups []span.Group) map[span.Span][]Explanation {
	out := make(map[span.Span][]Explanation)
	for _, g := range groups {
		for _, s := range g.Spans {
			if ex := e.explainSpan(s); len(ex) > 0 {
				out[s] = append(out[s], ex...)
			}
		}
	}
	return out
}

func (e *Explainer) explainSpan(s span.Span) []Explanation {
	if s.File == nil || s.File.Owner == nil {
		return nil
	}
	var explanations []Explanation
	for _, ff := range e.exposer.FingerprintsForSubmission(s.File.Owner) {
		if ff.File != s.File {
			continue
		}
		for _, fp := range ff.Fingerprints {
			if e.exposer.IsIgnored(fp.Hash) {
				continue
			}
			if !s.Contains(fp.Span) {
				continue
			}
			n := e.nWithFP[fp.Hash]
			explanations = append(explanations, Explanation{
				Span:   fp.Span,
				Text:   describe(n, e.total),
				Weight: weight(n, e.total),
			})
		}
	}
	return explanations
}

// weight implements spec.md §4.7's idf-ratio formula, clipped to
// [0, 1]. The minimum-sharing case (n=2, the smallest n a cross-
// submission match can have) normalizes to 1; a fingerprint every
// submission shares (n=N) normalizes toward 0.
func weight(n, total int) float64 {
	num := idf(n, total)
	den := idf(2, total)
	if den == 0 {
		return 0
	}
	w := num / den
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

func idf(n, total int) float64 {
	if n <= 0 || total <= 0 {
		return 0
	}
	return 1 + math.Log(float64(total)/float64(n))
}

func describe(n, total int) string {
	if total == 0 {
		return fmt.Sprintf("%d submissions contain this fragment", n)
	}
	pct := 100 * float64(n) / float64(total)
	return fmt.Sprintf("%d of %d submissions (%.1f%%) contain this fragment", n, total, pct)
}
