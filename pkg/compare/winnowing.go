package compare

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panbanda/simcheck/pkg/fingerprint"
	"github.com/panbanda/simcheck/pkg/preprocess"
	"github.com/panbanda/simcheck/pkg/span"
	"github.com/panbanda/simcheck/pkg/submission"
)

// Winnowing is the in-depth comparator of spec.md §4.2: it fingerprints
// every indexed submission's preprocessed token stream and uses the
// shared hash occurrences both to score submission pairs and to locate
// the span pairs an in-depth comparison reports.
//
// Per spec.md §5 ("the uniqueness explainer needs access to all
// tokens, best to disable concurrency to allow for caching" and its
// generalization to every other Pass, which IS allowed to run
// per-submission fan-out), Winnowing's internal maps are guarded by a
// mutex rather than confined to one worker: a single Winnowing
// instance is shared across a Pass's whole worker pool so its
// CompareIndex/ScoreIndex see every submission, which span expansion
// and the uniqueness explainer both depend on.
type Winnowing struct {
	Pipeline preprocess.Pipeline
	K, T     int
	Seed     uint64

	mu            sync.Mutex
	compareIdx    *fingerprint.CompareIndex
	scoreIdx      *fingerprint.ScoreIndex
	ignoredHashes map[fingerprint.Hash]bool
	subs          map[int]submission.Submission
	fileFPs       map[int][]FileFingerprints
}

// NewWinnowing constructs a Winnowing comparator for one Pass's
// preprocessor pipeline and winnowing parameters.
func NewWinnowing(pipeline preprocess.Pipeline, k, t int, seed uint64) *Winnowing {
	return &Winnowing{
		Pipeline:      pipeline,
		K:             k,
		T:             t,
		Seed:          seed,
		compareIdx:    fingerprint.NewCompareIndex(),
		scoreIdx:      fingerprint.NewScoreIndex(),
		ignoredHashes: make(map[fingerprint.Hash]bool),
		subs:          make(map[int]submission.Submission),
		fileFPs:       make(map[int][]FileFingerprints),
	}
}

// Index fingerprints sub's files (or, for a FingerprintOnly archive,
// adopts its pre-computed hashes) and records them in both indexes.
// Checked between files (and before the final aggregate write) so a
// cancelled ctx lets an in-flight Index call bail before touching
// compareIdx/scoreIdx/fileFPs, per spec.md §5.
func (w *Winnowing) Index(ctx context.Context, sub submission.Submission) error {
	switch s := sub.(type) {
	case *submission.FileBacked:
		ffs := make([]FileFingerprints, 0, len(s.Files))
		for _, f := range s.Files {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			toks, err := f.Preprocessed(w.Pipeline)
			if err != nil {
				return fmt.Errorf("winnowing index %s: %w", f.RelativePath, err)
			}
			fps := fingerprint.Winnow(f, toks, w.K, w.T, w.Seed)
			ffs = append(ffs, FileFingerprints{File: f, Fingerprints: fps})
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.mu.Lock()
		for _, ff := range ffs {
			w.compareIdx.Insert(ff.Fingerprints)
			w.scoreIdx.Include(s.SubmissionID(), ff.Fingerprints)
		}
		w.fileFPs[s.SubmissionID()] = ffs
		w.subs[s.SubmissionID()] = s
		w.mu.Unlock()
	case *submission.FingerprintOnly:
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		fps := make([]fingerprint.SourcedFingerprint, len(s.Fingerprints))
		for i, h := range s.Fingerprints {
			fps[i] = fingerprint.SourcedFingerprint{Hash: h}
		}
		w.scoreIdxInclude(s.SubmissionID(), fps)
		w.mu.Lock()
		w.subs[s.SubmissionID()] = s
		w.mu.Unlock()
	default:
		return fmt.Errorf("winnowing comparator: unsupported submission type %T", sub)
	}
	return nil
}

func (w *Winnowing) scoreIdxInclude(subID int, fps []fingerprint.SourcedFingerprint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scoreIdx.Include(subID, fps)
}

// IgnoreSubmission fingerprints a distro submission's files and marks
// every resulting hash as ignored: it will contribute no score and no
// span_matches to any later Scores()/Compare() call, per spec.md
// §4.2's ignore/ignore_all.
func (w *Winnowing) IgnoreSubmission(sub submission.Submission) error {
	fb, ok := sub.(*submission.FileBacked)
	if !ok {
		return fmt.Errorf("winnowing comparator: ignored submissions must be file-backed, got %T", sub)
	}
	for _, f := range fb.Files {
		toks, err := f.Preprocessed(w.Pipeline)
		if err != nil {
			return fmt.Errorf("winnowing ignore %s: %w", f.RelativePath, err)
		}
		fps := fingerprint.Winnow(f, toks, w.K, w.T, w.Seed)
		w.mu.Lock()
		for _, fp := range fps {
			w.ignoredHashes[fp.Hash] = true
		}
		w.mu.Unlock()
	}
	return nil
}

// Scores implements spec.md §4.2's scoring rule: for each non-ignored
// hash, every pair of distinct submissions sharing it gets +1; a pair
// where both submissions are archives is never scored (an archive
// never competes against another archive for a slot in its own
// top-N). The final score for a pair is the total count of hashes
// shared between them.
func (w *Winnowing) Scores() []Score {
	w.mu.Lock()
	defer w.mu.Unlock()

	type pairKey struct{ a, b int }
	counts := make(map[pairKey]int)
	var order []pairKey

	for _, h := range w.scoreIdx.Hashes() {
		if w.ignoredHashes[h] {
			continue
		}
		bm := w.scoreIdx.Submissions(h)
		if bm == nil {
			continue
		}
		ids := bm.ToArray()
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := int(ids[i]), int(ids[j])
				subA, subB := w.subs[a], w.subs[b]
				if subA == nil || subB == nil {
					continue
				}
				if subA.Archive() && subB.Archive() {
					continue
				}
				if a > b {
					a, b = b, a
				}
				key := pairKey{a, b}
				if _, seen := counts[key]; !seen {
					order = append(order, key)
				}
				counts[key]++
			}
		}
	}

	scores := make([]Score, 0, len(order))
	for _, key := range order {
		scores = append(scores, Score{SubA: w.subs[key.a], SubB: w.subs[key.b], Value: float64(counts[key])})
	}
	return scores
}

// Compare implements spec.md §4.2's in-depth comparison: hashes shared
// by both submissions contribute the cartesian product of their
// occurrences as span_matches, unless the hash is ignored, in which
// case its occurrences' spans are contributed to ignored_spans
// instead.
func (w *Winnowing) Compare(subA, subB *submission.FileBacked) (Comparison, error) {
	w.mu.Lock()
	ffA := w.fileFPs[subA.SubmissionID()]
	ffB := w.fileFPs[subB.SubmissionID()]
	w.mu.Unlock()

	mapA := hashOccurrences(ffA)
	mapB := hashOccurrences(ffB)

	var matches []span.Match
	var ignoredSpans []span.Span
	for h, occA := range mapA {
		occB, ok := mapB[h]
		if !ok {
			continue
		}
		w.mu.Lock()
		ignored := w.ignoredHashes[h]
		w.mu.Unlock()
		if ignored {
			for _, o := range occA {
				ignoredSpans = append(ignoredSpans, o.Span)
			}
			for _, o := range occB {
				ignoredSpans = append(ignoredSpans, o.Span)
			}
			continue
		}
		for _, a := range occA {
			for _, b := range occB {
				matches = append(matches, span.Match{A: a.Span, B: b.Span})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].A.Start != matches[j].A.Start {
			return matches[i].A.Start < matches[j].A.Start
		}
		return matches[i].B.Start < matches[j].B.Start
	})
	sort.Slice(ignoredSpans, func(i, j int) bool { return ignoredSpans[i].Start < ignoredSpans[j].Start })

	return Comparison{SubA: subA, SubB: subB, SpanMatches: matches, IgnoredSpans: ignoredSpans}, nil
}

// FingerprintsForSubmission implements FingerprintExposer: it is the
// capability pkg/uniqueness's explainer requires, and the reason
// spec.md §9 Open Question (a) resolves in Winnowing's favor over the
// names comparator.
func (w *Winnowing) FingerprintsForSubmission(sub submission.Submission) []FileFingerprints {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fileFPs[sub.SubmissionID()]
}

// IsIgnored reports whether hash has been removed from scoring/compare
// by an IgnoreSubmission call.
func (w *Winnowing) IsIgnored(hash uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ignoredHashes[hash]
}

func hashOccurrences(ffs []FileFingerprints) map[fingerprint.Hash][]fingerprint.SourcedFingerprint {
	m := make(map[fingerprint.Hash][]fingerprint.SourcedFingerprint)
	for _, ff := range ffs {
		for _, fp := range ff.Fingerprints {
			m[fp.Hash] = append(m[fp.Hash], fp)
		}
	}
	return m
}

var (
	_ Comparator         = (*Winnowing)(nil)
	_ FingerprintExposer = (*Winnowing)(nil)
)
