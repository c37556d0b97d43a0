package compare

import (
	"github.com/panbanda/simcheck/pkg/config"
	"github.com/panbanda/simcheck/pkg/preprocess"
)

// Pass names a uniform configuration of (preprocessor pipeline,
// comparator, parallel flag) applied across every submission, per the
// GLOSSARY's Pass definition and SPEC_FULL.md §4's six named passes
// (compare50/passes.py: structure, text, exact, names, nocomments,
// misspellings).
type Pass struct {
	Name          string
	Preprocessor  preprocess.Pipeline
	Parallel      bool
	NewComparator func() Comparator
}

// BuildPasses constructs every named pass compare50 defines, wired to
// cfg's winnowing/names parameters. structure is the one pass whose
// Parallel flag is false: spec.md §5 requires it serial because the
// uniqueness explainer needs a single global token cache, and
// pkg/engine only ever attaches the uniqueness explainer to structure.
func BuildPasses(cfg *config.Config) []Pass {
	return []Pass{
		{
			Name: "structure",
			Preprocessor: preprocess.Pipeline{
				preprocess.StripWhitespace,
				preprocess.StripComments,
				preprocess.NormalizeIdentifiers,
				preprocess.NormalizeBuiltinTypes,
				preprocess.NormalizeStringLiterals,
				preprocess.NormalizeNumericLiterals,
			},
			Parallel: false,
			NewComparator: func() Comparator {
				return NewWinnowing(preprocess.Pipeline{
					preprocess.StripWhitespace,
					preprocess.StripComments,
					preprocess.NormalizeIdentifiers,
					preprocess.NormalizeBuiltinTypes,
					preprocess.NormalizeStringLiterals,
					preprocess.NormalizeNumericLiterals,
				}, cfg.Winnowing.K, cfg.Winnowing.T, 0)
			},
		},
		{
			Name: "text",
			Preprocessor: preprocess.Pipeline{
				preprocess.StripWhitespace,
				preprocess.SplitOnWhitespace,
			},
			Parallel: true,
			NewComparator: func() Comparator {
				return NewWinnowing(preprocess.Pipeline{
					preprocess.StripWhitespace,
					preprocess.SplitOnWhitespace,
				}, cfg.Winnowing.K, cfg.Winnowing.T, 1)
			},
		},
		{
			Name:         "exact",
			Preprocessor: preprocess.Pipeline{},
			Parallel:     true,
			NewComparator: func() Comparator {
				return NewWinnowing(preprocess.Pipeline{}, cfg.Winnowing.K, cfg.Winnowing.T, 2)
			},
		},
		{
			Name: "nocomments",
			Preprocessor: preprocess.Pipeline{
				preprocess.StripComments,
				preprocess.StripWhitespace,
				preprocess.SplitOnWhitespace,
			},
			Parallel: true,
			NewComparator: func() Comparator {
				return NewWinnowing(preprocess.Pipeline{
					preprocess.StripComments,
					preprocess.StripWhitespace,
					preprocess.SplitOnWhitespace,
				}, cfg.Winnowing.K, cfg.Winnowing.T, 3)
			},
		},
		{
			Name: "names",
			Preprocessor: preprocess.Pipeline{
				preprocess.StripWhitespace,
				preprocess.StripComments,
				preprocess.NormalizeIdentifiers,
				preprocess.NormalizeBuiltinTypes,
				preprocess.NormalizeStringLiterals,
				preprocess.NormalizeNumericLiterals,
			},
			Parallel: true,
			NewComparator: func() Comparator {
				return NewNames(preprocess.Pipeline{
					preprocess.StripWhitespace,
					preprocess.StripComments,
					preprocess.NormalizeIdentifiers,
					preprocess.NormalizeBuiltinTypes,
					preprocess.NormalizeStringLiterals,
					preprocess.NormalizeNumericLiterals,
				}, cfg.Names.ContextWindow, cfg.Names.Seed)
			},
		},
		{
			Name: "misspellings",
			Preprocessor: preprocess.Pipeline{
				preprocess.Comments,
				preprocess.Words,
				preprocess.NormalizeCase,
			},
			Parallel: true,
			NewComparator: func() Comparator {
				return NewMisspellings(preprocess.Pipeline{
					preprocess.Comments,
					preprocess.Words,
					preprocess.NormalizeCase,
				})
			},
		},
	}
}

// SelectPasses filters BuildPasses(cfg)'s output down to cfg.Passes,
// preserving compare50's canonical pass ordering (config.AllPasses)
// rather than the order names were listed in configuration.
func SelectPasses(cfg *config.Config) []Pass {
	wanted := make(map[string]bool, len(cfg.Passes))
	for _, name := range cfg.Passes {
		wanted[name] = true
	}
	byName := make(map[string]Pass)
	for _, p := range BuildPasses(cfg) {
		byName[p.Name] = p
	}
	var out []Pass
	for _, name := range config.AllPasses {
		if p, ok := byName[name]; ok && wanted[name] {
			out = append(out, p)
		}
	}
	return out
}
