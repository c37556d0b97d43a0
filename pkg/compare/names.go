package compare

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/panbanda/simcheck/pkg/fingerprint"
	"github.com/panbanda/simcheck/pkg/preprocess"
	"github.com/panbanda/simcheck/pkg/span"
	"github.com/panbanda/simcheck/pkg/submission"
	"github.com/panbanda/simcheck/pkg/token"
)

// nameOccurrence is one Name-token appearance, mapped back to its
// unprocessed token (spec.md §4.6's "associate the hash with the
// unprocessed Name token") so the span it contributes is the token's
// real source range rather than whatever a normalizing preprocessor
// step left behind.
type nameOccurrence struct {
	File        *submission.File
	Token       token.Token
	ContextHash uint64
}

// Names is the names comparator of spec.md §4.6: identifiers are
// fingerprinted not by spelling but by the hashes of the token context
// surrounding each of their occurrences, so renamed-but-structurally-
// identical code still matches.
//
// Two occurrences of the same spelling are grouped into one
// "identifier"; its fingerprint is the set of context hashes across
// all its occurrences. An identifier that occurs only once carries a
// singleton (so non-discriminating) fingerprint and is dropped, per
// spec.md §4.6's "drop identifiers that appear only once". Two
// identifiers (possibly spelled differently) are in the same
// equivalence class iff their fingerprint sets are equal.
type Names struct {
	ContextWindow int
	Seed          uint64
	Pipeline      preprocess.Pipeline

	mu           sync.Mutex
	subs         map[int]submission.Submission
	bySpelling   map[int]map[string][]nameOccurrence
	nonNameSpans map[int][]span.Span
	ignoredHash  map[uint64]bool
}

// NewNames constructs a Names comparator with the given context-window
// radius (spec.md default 5) and hash seed (spec.md default 50).
func NewNames(pipeline preprocess.Pipeline, contextWindow int, seed uint64) *Names {
	return &Names{
		ContextWindow: contextWindow,
		Seed:          seed,
		Pipeline:      pipeline,
		subs:          make(map[int]submission.Submission),
		bySpelling:    make(map[int]map[string][]nameOccurrence),
		nonNameSpans:  make(map[int][]span.Span),
		ignoredHash:   make(map[uint64]bool),
	}
}

// Index fingerprints every Name-hierarchy token occurrence in sub's
// files and records the non-Name token spans for ignored_spans (spec.md
// §4.6's (b)). FingerprintOnly submissions carry no per-name data and
// are recorded for identity only; they never contribute occurrences.
// Checked between files (and before every shared-map write) so a
// cancelled ctx lets an in-flight Index call bail without mutating
// n.subs/n.bySpelling/n.nonNameSpans, per spec.md §5.
func (n *Names) Index(ctx context.Context, sub submission.Submission) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fb, ok := sub.(*submission.FileBacked)
	if !ok {
		n.mu.Lock()
		n.subs[sub.SubmissionID()] = sub
		n.mu.Unlock()
		return nil
	}

	spelling := make(map[string][]nameOccurrence)
	var nonName []span.Span
	for _, f := range fb.Files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		occs, gaps, err := n.extractFile(f)
		if err != nil {
			return fmt.Errorf("names index %s: %w", f.RelativePath, err)
		}
		for _, o := range occs {
			spelling[o.Token.Value] = append(spelling[o.Token.Value], o)
		}
		nonName = append(nonName, gaps...)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	n.mu.Lock()
	n.subs[sub.SubmissionID()] = sub
	n.bySpelling[sub.SubmissionID()] = spelling
	n.nonNameSpans[sub.SubmissionID()] = nonName
	n.mu.Unlock()
	return nil
}

// IgnoreSubmission fingerprints a distro submission's identifier
// occurrences and marks their context hashes as ignored, per spec.md
// §4.6's "names extracted from distro files are removed from each
// submission's name list before scoring".
func (n *Names) IgnoreSubmission(sub submission.Submission) error {
	fb, ok := sub.(*submission.FileBacked)
	if !ok {
		return fmt.Errorf("names comparator: ignored submissions must be file-backed, got %T", sub)
	}
	for _, f := range fb.Files {
		occs, _, err := n.extractFile(f)
		if err != nil {
			return fmt.Errorf("names ignore %s: %w", f.RelativePath, err)
		}
		n.mu.Lock()
		for _, o := range occs {
			n.ignoredHash[o.ContextHash] = true
		}
		n.mu.Unlock()
	}
	return nil
}

// extractFile walks one file's preprocessed token stream, returning a
// nameOccurrence per Name token (mapped back to its unprocessed span)
// and a Span per non-Name token (the "everything else" gap spans).
func (n *Names) extractFile(f *submission.File) (occs []nameOccurrence, nonName []span.Span, err error) {
	unprocessed, err := f.Tokens()
	if err != nil {
		return nil, nil, err
	}
	preprocessed, err := f.Preprocessed(n.Pipeline)
	if err != nil {
		return nil, nil, err
	}

	// Name tokens are never dropped, merged, or repositioned by any of
	// the pipeline's six steps (only normalize_identifiers rewrites their
	// Value, to "v"), so a Name token's Start offset is the stable
	// per-lex-time identity spec.md §4.6 asks for: every unprocessed Name
	// token has exactly one preprocessed counterpart at the same Start.
	// Keyed on Start alone, not Value: once normalize_identifiers has
	// run, the preprocessed token's Value is no longer the original
	// spelling, so a lookup keyed on it would never hit.
	unprocessedByStart := make(map[int]token.Token, len(unprocessed))
	for _, t := range unprocessed {
		if t.Type.Is(token.Name) {
			unprocessedByStart[t.Start] = t
		}
	}

	for i, t := range preprocessed {
		if !t.Type.Is(token.Name) {
			nonName = append(nonName, span.New(f, t.Start, t.End))
			continue
		}
		hash := contextHash(preprocessed, i, n.ContextWindow, n.Seed)
		orig, ok := unprocessedByStart[t.Start]
		if !ok {
			orig = t
		}
		occs = append(occs, nameOccurrence{File: f, Token: orig, ContextHash: hash})
	}
	return occs, nonName, nil
}

// contextHash hashes the values of the tokens surrounding index i
// (±radius, clamped to stream bounds, i itself excluded), per spec.md
// §4.6.
func contextHash(tokens []token.Token, i, radius int, seed uint64) uint64 {
	lo := i - radius
	if lo < 0 {
		lo = 0
	}
	hi := i + radius
	if hi >= len(tokens) {
		hi = len(tokens) - 1
	}
	values := make([]string, 0, hi-lo)
	for j := lo; j <= hi; j++ {
		if j == i {
			continue
		}
		values = append(values, tokens[j].Value)
	}
	return fingerprint.HashValues(values, seed)
}

// classes groups subID's surviving (non-ignored, non-singleton)
// identifiers by their fingerprint set, and returns the ignored_spans
// contributed by this submission: dropped-as-distro occurrences plus
// every non-Name token's span.
func (n *Names) classes(subID int) (map[string][]nameOccurrence, []span.Span) {
	n.mu.Lock()
	bySpelling := n.bySpelling[subID]
	nonName := append([]span.Span{}, n.nonNameSpans[subID]...)
	n.mu.Unlock()

	classes := make(map[string][]nameOccurrence)
	var ignored []span.Span
	for _, occs := range bySpelling {
		var kept []nameOccurrence
		n.mu.Lock()
		for _, o := range occs {
			if n.ignoredHash[o.ContextHash] {
				ignored = append(ignored, span.New(o.File, o.Token.Start, o.Token.End))
				continue
			}
			kept = append(kept, o)
		}
		n.mu.Unlock()
		if len(kept) < 2 {
			continue
		}
		hashSet := make(map[uint64]bool, len(kept))
		for _, o := range kept {
			hashSet[o.ContextHash] = true
		}
		classes[canonicalHashSetKey(hashSet)] = append(classes[canonicalHashSetKey(hashSet)], kept...)
	}
	return classes, append(ignored, nonName...)
}

func canonicalHashSetKey(set map[uint64]bool) string {
	hashes := make([]uint64, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	parts := make([]string, len(hashes))
	for i, h := range hashes {
		parts[i] = strconv.FormatUint(h, 16)
	}
	return strings.Join(parts, ",")
}

// Scores implements spec.md §4.6's Score(A,B): the cartesian product
// of matching FingerprintedName equivalence classes.
func (n *Names) Scores() []Score {
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	subs := make(map[int]submission.Submission, len(n.subs))
	for id, s := range n.subs {
		ids = append(ids, id)
		subs[id] = s
	}
	n.mu.Unlock()
	sort.Ints(ids)

	classesByID := make(map[int]map[string][]nameOccurrence, len(ids))
	for _, id := range ids {
		cls, _ := n.classes(id)
		classesByID[id] = cls
	}

	var scores []Score
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			subA, subB := subs[a], subs[b]
			if subA.Archive() && subB.Archive() {
				continue
			}
			var total float64
			for key, occsA := range classesByID[a] {
				occsB, ok := classesByID[b][key]
				if !ok {
					continue
				}
				total += float64(len(occsA)) * float64(len(occsB))
			}
			if total > 0 {
				scores = append(scores, Score{SubA: subA, SubB: subB, Value: total})
			}
		}
	}
	return scores
}

// Compare implements spec.md §4.6's Compare: span pairs from each
// matching equivalence class, plus ignored_spans for dropped-as-distro
// names and every non-Name token.
func (n *Names) Compare(subA, subB *submission.FileBacked) (Comparison, error) {
	classesA, ignoredA := n.classes(subA.SubmissionID())
	classesB, ignoredB := n.classes(subB.SubmissionID())

	var matches []span.Match
	for key, occsA := range classesA {
		occsB, ok := classesB[key]
		if !ok {
			continue
		}
		for _, a := range occsA {
			for _, b := range occsB {
				matches = append(matches, span.Match{
					A: span.New(a.File, a.Token.Start, a.Token.End),
					B: span.New(b.File, b.Token.Start, b.Token.End),
				})
			}
		}
	}

	ignored := append(append([]span.Span{}, ignoredA...), ignoredB...)
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].A.Start != matches[j].A.Start {
			return matches[i].A.Start < matches[j].A.Start
		}
		return matches[i].B.Start < matches[j].B.Start
	})
	sort.Slice(ignored, func(i, j int) bool { return ignored[i].Start < ignored[j].Start })

	return Comparison{SubA: subA, SubB: subB, SpanMatches: matches, IgnoredSpans: ignored}, nil
}

var _ Comparator = (*Names)(nil)
