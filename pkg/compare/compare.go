// Package compare implements spec.md's Pass abstraction (§6's `passes`
// config, §9 design notes) and its two comparator strategies: the
// winnowing-backed in-depth comparator (§4.2) and the names comparator
// (§4.6), plus a small dictionary-backed misspellings comparator
// (SPEC_FULL.md §4's supplemented feature).
package compare

import (
	"context"

	"github.com/panbanda/simcheck/pkg/fingerprint"
	"github.com/panbanda/simcheck/pkg/span"
	"github.com/panbanda/simcheck/pkg/submission"
)

// Comparison is spec.md §3's Comparison value: the span-level result
// of an in-depth comparison between two submissions.
type Comparison struct {
	SubA, SubB  submission.Submission
	SpanMatches []span.Match
	// IgnoredSpans are ranges in either file that were excluded from
	// matching (distro content, or preprocessor-dropped ranges recovered
	// by pkg/missingspan) and should render as "not compared".
	IgnoredSpans []span.Span
}

// Score is spec.md §3's Score value: an ordered pair of submissions
// plus a real-valued similarity score, used as a priority-queue
// element for top-N extraction (pkg/engine/topn.go).
type Score struct {
	SubA, SubB submission.Submission
	Value      float64
}

// Comparator is the interface every Pass's strategy implements: index
// submissions as they're read, then answer pairwise Scores and, for
// chosen pairs, a span-level Comparison. A Comparator must support
// FileBacked submissions for Compare; FingerprintOnly submissions
// (spec.md §3's server-archive variant) only need to participate in
// Index/Scores, never Compare.
type Comparator interface {
	// Index ingests one submission (already restricted to this Pass's
	// preprocessed token streams) into the comparator's internal
	// scoring/compare structures. Implementations check ctx between
	// files so a cancelled task can bail before mutating shared state,
	// per spec.md §5's "a cancelled task must abandon its output
	// without updating the shared index".
	Index(ctx context.Context, sub submission.Submission) error

	// IgnoreSubmission removes from every later Score/Compare result
	// anything contributed by sub's content (spec.md §4.2's
	// ignore/ignore_all, applied to a distro submission).
	IgnoreSubmission(sub submission.Submission) error

	// Scores returns every candidate pair derivable from submissions
	// indexed so far, per spec.md §4.2's scoring rule.
	Scores() []Score

	// Compare produces the span-level Comparison for one chosen pair.
	// Both submissions must already have been Indexed.
	Compare(subA, subB *submission.FileBacked) (Comparison, error)
}

// FingerprintExposer is implemented by comparators capable of
// supporting pkg/uniqueness's explainer: spec.md §9 Open Question (a)
// notes the source's names comparator does not implement this, and
// SPEC_FULL.md models the capability check as this interface:
// pkg/engine returns an engine.ExplainerUnsupported error before running
// a Pass that the uniqueness explainer is attached to if its comparator
// lacks it.
type FingerprintExposer interface {
	Comparator

	// FingerprintsForSubmission returns every SourcedFingerprint the
	// comparator has indexed for sub, used by the uniqueness explainer
	// to compute idf weights (spec.md §4.7).
	FingerprintsForSubmission(sub submission.Submission) []FileFingerprints

	// IsIgnored reports whether hash was removed from scoring/compare
	// by an IgnoreSubmission call, per spec.md §4.7's "removing
	// fingerprints that also appear in any ignored file's fingerprint
	// stream".
	IsIgnored(hash uint64) bool
}

// FileFingerprints pairs a File with the fingerprints the comparator
// produced for it, so the uniqueness explainer can locate which
// fingerprints' source spans fall inside a matched Group span.
type FileFingerprints struct {
	File         *submission.File
	Fingerprints []fingerprint.SourcedFingerprint
}
