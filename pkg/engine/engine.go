package engine

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/simcheck/internal/progress"
	"github.com/panbanda/simcheck/pkg/compare"
	"github.com/panbanda/simcheck/pkg/config"
	"github.com/panbanda/simcheck/pkg/missingspan"
	"github.com/panbanda/simcheck/pkg/preprocess"
	"github.com/panbanda/simcheck/pkg/span"
	"github.com/panbanda/simcheck/pkg/submission"
	"github.com/panbanda/simcheck/pkg/token"
	"github.com/panbanda/simcheck/pkg/uniqueness"
)

// Result is spec.md §3's Result value scoped to one scored submission
// pair within one Pass: the pair's score, its matched Groups, the
// ranges excluded from matching, and (only for passes the uniqueness
// explainer is attached to) a per-span rarity annotation.
type Result struct {
	PassName     string
	SubA, SubB   submission.Submission
	Score        float64
	Groups       []span.Group
	IgnoredSpans []span.Span
	Explanations map[span.Span][]uniqueness.Explanation
}

// PassResults groups every Result one Pass produced, in descending
// score order. Run returns a slice of these, in Pass-declaration
// order, matching spec.md §5's "relative order between passes is
// insertion order".
type PassResults struct {
	PassName string
	Results  []Result
}

// Corpus is the input population for one Run: the regular submissions
// (archives included, each identified by its own IsArchiveFlag/Archive()
// bit) and the distro/starter submissions whose content must not
// contribute to any score or span_match, per spec.md §1 and §4.2.
type Corpus struct {
	Submissions []submission.Submission
	Distro      []*submission.FileBacked
}

// Run executes every Pass cfg.Passes names against corpus, per spec.md
// §4's data flow: index, score, select the top N pairs, compare,
// expand, group, and (for the structure pass) explain.
//
// Per spec.md §5's concurrency model, indexing fans out across
// submissions with a sourcegraph/conc pool when the Pass is parallel,
// and runs serially when it is not (the structure pass, whose
// uniqueness explainer needs a single global token cache built by one
// uncontended pass over the corpus).
func Run(ctx context.Context, cfg *config.Config, corpus Corpus) ([]PassResults, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	passes := compare.SelectPasses(cfg)
	out := make([]PassResults, 0, len(passes))
	for _, p := range passes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		pr, err := runPass(ctx, p, cfg, corpus)
		if err != nil {
			return nil, fmt.Errorf("pass %s: %w", p.Name, err)
		}
		out = append(out, pr)
	}
	return out, nil
}

// runPass executes one Pass end to end. A cancelled context abandons
// this Pass's output entirely (spec.md §5's "a cancelled task must
// abandon its output without updating the shared index") rather than
// returning a partial PassResults.
func runPass(ctx context.Context, p compare.Pass, cfg *config.Config, corpus Corpus) (PassResults, error) {
	comparator := p.NewComparator()

	var exposer compare.FingerprintExposer
	if p.Name == "structure" {
		e, ok := comparator.(compare.FingerprintExposer)
		if !ok {
			return PassResults{}, &ExplainerUnsupported{PassName: p.Name}
		}
		exposer = e
	}

	if err := indexSubmissions(ctx, comparator, corpus.Submissions, p.Parallel); err != nil {
		return PassResults{}, err
	}
	for _, d := range corpus.Distro {
		if err := comparator.IgnoreSubmission(d); err != nil {
			return PassResults{}, &ReadError{Submission: d.Path, Err: err}
		}
	}
	select {
	case <-ctx.Done():
		return PassResults{}, ctx.Err()
	default:
	}

	scores := comparator.Scores()
	top := SelectTopN(scores, cfg.TopN)

	var explainer *uniqueness.Explainer
	if exposer != nil {
		explainer = uniqueness.New(exposer, corpus.Submissions)
	}

	results := make([]Result, 0, len(top))
	for _, sc := range top {
		select {
		case <-ctx.Done():
			return PassResults{}, ctx.Err()
		default:
		}

		subA, okA := sc.SubA.(*submission.FileBacked)
		subB, okB := sc.SubB.(*submission.FileBacked)
		if !okA || !okB {
			// A fingerprint-only server archive has no file text to
			// produce spans from: it can be scored but never compared.
			continue
		}

		comparison, err := comparator.Compare(subA, subB)
		if err != nil {
			return PassResults{}, fmt.Errorf("compare %s/%s: %w", subA.Path, subB.Path, err)
		}

		expanded, err := expandComparison(comparison, subA, subB, p)
		if err != nil {
			return PassResults{}, err
		}

		groups := span.GroupMatches(expanded)

		ignored := append([]span.Span{}, comparison.IgnoredSpans...)
		recoveredA, err := recoverMissingSpans(subA, p.Preprocessor)
		if err != nil {
			return PassResults{}, &ReadError{Submission: subA.Path, Err: err}
		}
		recoveredB, err := recoverMissingSpans(subB, p.Preprocessor)
		if err != nil {
			return PassResults{}, &ReadError{Submission: subB.Path, Err: err}
		}
		ignored = append(ignored, recoveredA...)
		ignored = append(ignored, recoveredB...)
		ignored = span.FlattenByFile(ignored)

		result := Result{
			PassName:     p.Name,
			SubA:         subA,
			SubB:         subB,
			Score:        sc.Value,
			Groups:       groups,
			IgnoredSpans: ignored,
		}
		if explainer != nil {
			result.Explanations = explainer.Explain(groups)
		}
		results = append(results, result)
	}

	return PassResults{PassName: p.Name, Results: results}, nil
}

// indexSubmissions fans Index calls for subs out across
// runtime.NumCPU() workers when parallel is true, matching spec.md
// §5's "embarrassingly parallel by Pass and by submission". When
// parallel is false it indexes serially, on the caller's goroutine, so
// a single comparator instance (and the uniqueness explainer built
// from it afterward) sees a deterministic, uncontended build.
func indexSubmissions(ctx context.Context, comparator compare.Comparator, subs []submission.Submission, parallel bool) error {
	tracker := progress.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(subs))
	}

	if !parallel {
		for _, s := range subs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := comparator.Index(ctx, s); err != nil {
				return &ReadError{Submission: s.Identity(), Err: err}
			}
			if tracker != nil {
				tracker.Tick(s.Identity())
			}
		}
		return nil
	}

	p := pool.New().WithMaxGoroutines(runtime.NumCPU()).WithContext(ctx).WithCancelOnError()
	for _, s := range subs {
		sub := s
		p.Go(func(ctx context.Context) error {
			// A goroutine that was merely queued (not yet started) when
			// the pool was cancelled must abandon its output entirely,
			// per spec.md §5: bail here before comparator.Index ever
			// touches shared state. Index itself re-checks ctx between
			// files so a goroutine already in flight can also bail
			// before its next shared-map write.
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := comparator.Index(ctx, sub); err != nil {
				return &ReadError{Submission: sub.Identity(), Err: err}
			}
			// Progress updates are fire-and-forget (spec.md §5) and
			// must not block workers: Tick only increments an atomic
			// counter and invokes a non-blocking callback.
			if tracker != nil {
				tracker.Tick(sub.Identity())
			}
			return nil
		})
	}
	return p.Wait()
}

// filePair identifies the two files a bucket of span.Match values
// connects, so expandComparison can hand span.Expand the right token
// lists per file pair instead of assuming a submission has exactly one
// file.
type filePair struct {
	a, b *submission.File
}

// expandComparison implements spec.md §4.3 across a whole Comparison:
// it buckets span_matches by the (file_A, file_B) pair they belong to
// (a submission may have many files) and runs span.Expand separately
// per bucket, since Expand needs one contiguous token list per side.
func expandComparison(comparison compare.Comparison, subA, subB *submission.FileBacked, p compare.Pass) ([]span.Match, error) {
	buckets := make(map[filePair][]span.Match)
	var order []filePair
	for _, m := range comparison.SpanMatches {
		key := filePair{a: m.A.File, b: m.B.File}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], m)
	}

	var out []span.Match
	for _, key := range order {
		tokensA, err := alignmentTokens(key.a, p)
		if err != nil {
			return nil, &ReadError{Submission: subA.Path, Path: key.a.RelativePath, Err: err}
		}
		tokensB, err := alignmentTokens(key.b, p)
		if err != nil {
			return nil, &ReadError{Submission: subB.Path, Path: key.b.RelativePath, Err: err}
		}
		out = append(out, span.Expand(buckets[key], tokensA, tokensB)...)
	}
	return out, nil
}

// alignmentTokens returns the token list a Pass's span_matches are
// aligned to: the names comparator reports spans over the file's
// unprocessed tokens (spec.md §4.6's "associate the hash with the
// unprocessed Name token"), while every other Pass reports spans over
// its own preprocessed stream.
func alignmentTokens(f *submission.File, p compare.Pass) ([]token.Token, error) {
	if p.Name == "names" {
		return f.Tokens()
	}
	return f.Preprocessed(p.Preprocessor)
}

// recoverMissingSpans implements spec.md §4.8 across every file in
// sub: the character ranges each file's unprocessed stream covers that
// pipeline dropped entirely (as opposed to transforming), which
// should render as "not compared" in every Comparison this file
// participates in.
func recoverMissingSpans(sub *submission.FileBacked, pipeline preprocess.Pipeline) ([]span.Span, error) {
	var out []span.Span
	for _, f := range sub.Files {
		unprocessed, err := f.Tokens()
		if err != nil {
			return nil, err
		}
		preprocessed, err := f.Preprocessed(pipeline)
		if err != nil {
			return nil, err
		}
		out = append(out, missingspan.Recover(f, unprocessed, preprocessed)...)
	}
	return out, nil
}
