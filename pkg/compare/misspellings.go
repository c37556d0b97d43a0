package compare

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panbanda/simcheck/pkg/preprocess"
	"github.com/panbanda/simcheck/pkg/span"
	"github.com/panbanda/simcheck/pkg/submission"
	"github.com/panbanda/simcheck/pkg/token"
)

// misspellingOccurrence is one candidate-misspelling word, already
// lower-cased and filtered to alphabetic content by the `comments` +
// `words` + `normalize_case` pipeline the misspellings Pass configures.
type misspellingOccurrence struct {
	File  *submission.File
	Token token.Token
}

// Misspellings is the dictionary-backed exact-value comparator
// SPEC_FULL.md §4 resolves the `misspellings` pass enum value to: any
// comment word absent from the built-in commonWords dictionary is a
// candidate "identically misspelled English word", and two
// submissions match wherever they share the same candidate word
// literally. It needs no winnowing or context hashing — just the
// Comparator shape every Pass expects.
type Misspellings struct {
	Pipeline preprocess.Pipeline

	mu          sync.Mutex
	subs        map[int]submission.Submission
	byValue     map[int]map[string][]misspellingOccurrence
	ignoredWord map[string]bool
}

// NewMisspellings constructs a Misspellings comparator for the given
// preprocessor pipeline (expected to be comments -> words ->
// normalize_case, per spec.md §4.1's primitives).
func NewMisspellings(pipeline preprocess.Pipeline) *Misspellings {
	return &Misspellings{
		Pipeline:    pipeline,
		subs:        make(map[int]submission.Submission),
		byValue:     make(map[int]map[string][]misspellingOccurrence),
		ignoredWord: make(map[string]bool),
	}
}

func (m *Misspellings) extractFile(f *submission.File) ([]misspellingOccurrence, error) {
	toks, err := f.Preprocessed(m.Pipeline)
	if err != nil {
		return nil, err
	}
	var occs []misspellingOccurrence
	for _, t := range toks {
		if t.Value == "" || isKnownWord(t.Value) {
			continue
		}
		occs = append(occs, misspellingOccurrence{File: f, Token: t})
	}
	return occs, nil
}

// Index records sub's candidate-misspelling occurrences, grouped by
// literal word value. FingerprintOnly submissions contribute nothing.
// Checked between files (and before every shared-map write) so a
// cancelled ctx lets an in-flight Index call bail without mutating
// m.subs/m.byValue, per spec.md §5.
func (m *Misspellings) Index(ctx context.Context, sub submission.Submission) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fb, ok := sub.(*submission.FileBacked)
	if !ok {
		m.mu.Lock()
		m.subs[sub.SubmissionID()] = sub
		m.mu.Unlock()
		return nil
	}

	byValue := make(map[string][]misspellingOccurrence)
	for _, f := range fb.Files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		occs, err := m.extractFile(f)
		if err != nil {
			return fmt.Errorf("misspellings index %s: %w", f.RelativePath, err)
		}
		for _, o := range occs {
			byValue[o.Token.Value] = append(byValue[o.Token.Value], o)
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	m.mu.Lock()
	m.subs[sub.SubmissionID()] = sub
	m.byValue[sub.SubmissionID()] = byValue
	m.mu.Unlock()
	return nil
}

// IgnoreSubmission marks every candidate-misspelling value found in a
// distro submission as ignored, so starter-code comments never count
// as a match between two students who both kept them unedited.
func (m *Misspellings) IgnoreSubmission(sub submission.Submission) error {
	fb, ok := sub.(*submission.FileBacked)
	if !ok {
		return fmt.Errorf("misspellings comparator: ignored submissions must be file-backed, got %T", sub)
	}
	for _, f := range fb.Files {
		occs, err := m.extractFile(f)
		if err != nil {
			return fmt.Errorf("misspellings ignore %s: %w", f.RelativePath, err)
		}
		m.mu.Lock()
		for _, o := range occs {
			m.ignoredWord[o.Token.Value] = true
		}
		m.mu.Unlock()
	}
	return nil
}

func (m *Misspellings) surviving(subID int) map[string][]misspellingOccurrence {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]misspellingOccurrence)
	for value, occs := range m.byValue[subID] {
		if m.ignoredWord[value] {
			continue
		}
		out[value] = occs
	}
	return out
}

// Scores returns, for each pair of submissions, the cartesian-product
// count of shared candidate-misspelling word occurrences.
func (m *Misspellings) Scores() []Score {
	m.mu.Lock()
	ids := make([]int, 0, len(m.subs))
	subs := make(map[int]submission.Submission, len(m.subs))
	for id, s := range m.subs {
		ids = append(ids, id)
		subs[id] = s
	}
	m.mu.Unlock()
	sort.Ints(ids)

	survivingByID := make(map[int]map[string][]misspellingOccurrence, len(ids))
	for _, id := range ids {
		survivingByID[id] = m.surviving(id)
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
			for value, occsA := range survivingByID[a] {
				occsB, ok := survivingByID[b][value]
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

// Compare emits a span pair for every shared misspelled-word
// occurrence; ignored_spans carries only the distro-matched words
// (the generic preprocessor-gap recovery of pkg/missingspan covers
// everything outside the comments/words pipeline).
func (m *Misspellings) Compare(subA, subB *submission.FileBacked) (Comparison, error) {
	occsA := m.surviving(subA.SubmissionID())
	occsB := m.surviving(subB.SubmissionID())

	var matches []span.Match
	for value, a := range occsA {
		b, ok := occsB[value]
		if !ok {
			continue
		}
		for _, oa := range a {
			for _, ob := range b {
				matches = append(matches, span.Match{
					A: span.New(oa.File, oa.Token.Start, oa.Token.End),
					B: span.New(ob.File, ob.Token.Start, ob.Token.End),
				})
			}
		}
	}

	m.mu.Lock()
	var ignored []span.Span
	for _, o := range m.byValue[subA.SubmissionID()] {
		for _, occ := range o {
			if m.ignoredWord[occ.Token.Value] {
				ignored = append(ignored, span.New(occ.File, occ.Token.Start, occ.Token.End))
			}
		}
	}
	for _, o := range m.byValue[subB.SubmissionID()] {
		for _, occ := range o {
			if m.ignoredWord[occ.Token.Value] {
				ignored = append(ignored, span.New(occ.File, occ.Token.Start, occ.Token.End))
			}
		}
	}
	m.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].A.Start != matches[j].A.Start {
			return matches[i].A.Start < matches[j].A.Start
		}
		return matches[i].B.Start < matches[j].B.Start
	})
	sort.Slice(ignored, func(i, j int) bool { return ignored[i].Start < ignored[j].Start })

	return Comparison{SubA: subA, SubB: subB, SpanMatches: matches, IgnoredSpans: ignored}, nil
}

var _ Comparator = (*Misspellings)(nil)
