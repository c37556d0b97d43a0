// Package preprocess implements the token->token transformation
// primitives of spec.md §4.1. Per the design note in spec.md §9, a
// Pipeline is a typed sum (Step) rather than a slice of closures: every
// worker can reconstruct the same pure transformation locally from a
// serializable value, with no shared state and no function pointers to
// marshal across a pool boundary.
package preprocess

import (
	"strings"
	"unicode/utf8"

	"github.com/panbanda/simcheck/pkg/token"
)

// Step names one primitive transformation. The zero value is invalid.
type Step int

const (
	StripWhitespace Step = iota + 1
	StripComments
	NormalizeIdentifiers
	NormalizeBuiltinTypes
	NormalizeStringLiterals
	NormalizeNumericLiterals
	SplitOnWhitespace
	Comments
	NormalizeCase
	Words
)

var stepNames = map[Step]string{
	StripWhitespace:          "strip_whitespace",
	StripComments:            "strip_comments",
	NormalizeIdentifiers:     "normalize_identifiers",
	NormalizeBuiltinTypes:    "normalize_builtin_types",
	NormalizeStringLiterals:  "normalize_string_literals",
	NormalizeNumericLiterals: "normalize_numeric_literals",
	SplitOnWhitespace:        "split_on_whitespace",
	Comments:                 "comments",
	NormalizeCase:            "normalize_case",
	Words:                    "words",
}

// String returns the step's config/display name.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStep resolves a config-file step name to a Step.
func ParseStep(name string) (Step, bool) {
	for s, n := range stepNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Pipeline is an ordered, serializable sequence of Steps: left-to-right
// function composition per spec.md §4.1.
type Pipeline []Step

// Signature returns a stable string identity for this pipeline, used to
// key per-file preprocessed-token caches (pkg/submission).
func (p Pipeline) Signature() string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.String()
	}
	return strings.Join(names, ",")
}

// Apply runs every Step in order over tokens, returning a new slice.
// Pure: the input slice is never mutated.
func (p Pipeline) Apply(tokens []token.Token) []token.Token {
	out := tokens
	for _, step := range p {
		out = apply(step, out)
	}
	return out
}

func apply(step Step, in []token.Token) []token.Token {
	switch step {
	case StripWhitespace:
		return stripWhitespace(in)
	case StripComments:
		return stripComments(in)
	case NormalizeIdentifiers:
		return normalizeIdentifiers(in)
	case NormalizeBuiltinTypes:
		return normalizeBuiltinTypes(in)
	case NormalizeStringLiterals:
		return normalizeStringLiterals(in)
	case NormalizeNumericLiterals:
		return normalizeNumericLiterals(in)
	case SplitOnWhitespace:
		return splitOnWhitespace(in)
	case Comments:
		return onlyComments(in)
	case NormalizeCase:
		return normalizeCase(in)
	case Words:
		return words(in)
	default:
		return in
	}
}

// stripWhitespace: for Text-hierarchy tokens, remove all whitespace
// from the value; drop the token if the result is empty. Non-Text
// tokens pass through unchanged.
func stripWhitespace(in []token.Token) []token.Token {
	out := make([]token.Token, 0, len(in))
	for _, t := range in {
		if !t.Type.Is(token.Text) {
			out = append(out, t)
			continue
		}
		stripped := stripAllWhitespace(t.Value)
		if stripped == "" {
			continue
		}
		t.Value = stripped
		out = append(out, t)
	}
	return out
}

func stripAllWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripComments: drop Comment.Multiline, Comment.Single, and
// Comment.Hashbang tokens.
func stripComments(in []token.Token) []token.Token {
	out := make([]token.Token, 0, len(in))
	for _, t := range in {
		switch t.Type {
		case token.CommentMultiline, token.CommentSingle, token.CommentHashbang:
			continue
		}
		out = append(out, t)
	}
	return out
}

// normalizeIdentifiers: Name-hierarchy tokens get value "v".
func normalizeIdentifiers(in []token.Token) []token.Token {
	out := make([]token.Token, len(in))
	for i, t := range in {
		if t.Type.Is(token.Name) {
			t.Value = "v"
		}
		out[i] = t
	}
	return out
}

// normalizeBuiltinTypes: Keyword.Type-hierarchy tokens get value "t".
func normalizeBuiltinTypes(in []token.Token) []token.Token {
	out := make([]token.Token, len(in))
	for i, t := range in {
		if t.Type.Is(token.KeywordType) {
			t.Value = "t"
		}
		out[i] = t
	}
	return out
}

// normalizeStringLiterals: run-length collapse consecutive String
// tokens of the same subtype into one token with value "" spanning
// their union of offsets.
func normalizeStringLiterals(in []token.Token) []token.Token {
	out := make([]token.Token, 0, len(in))
	var acc *token.Token
	flush := func() {
		if acc != nil {
			acc.Value = ""
			out = append(out, *acc)
			acc = nil
		}
	}
	for _, t := range in {
		if !t.Type.Is(token.String) {
			flush()
			out = append(out, t)
			continue
		}
		if acc != nil && acc.Type == t.Type {
			acc.End = t.End
			continue
		}
		flush()
		tc := t
		acc = &tc
	}
	flush()
	return out
}

// normalizeNumericLiterals: Integer -> "INT", Float -> "FLOAT", other
// Number -> "NUM".
func normalizeNumericLiterals(in []token.Token) []token.Token {
	out := make([]token.Token, len(in))
	for i, t := range in {
		switch {
		case t.Type == token.NumberInteger:
			t.Value = "INT"
		case t.Type == token.NumberFloat:
			t.Value = "FLOAT"
		case t.Type.Is(token.Number):
			t.Value = "NUM"
		}
		out[i] = t
	}
	return out
}

// splitOnWhitespace: split each token's value on whitespace, emitting
// one token per non-empty piece with offsets adjusted by the piece's
// position within the original value.
func splitOnWhitespace(in []token.Token) []token.Token {
	out := make([]token.Token, 0, len(in))
	for _, t := range in {
		offset := 0
		for _, piece := range strings.FieldsFunc(t.Value, isWhitespaceRune) {
			idx := strings.Index(t.Value[offset:], piece)
			if idx < 0 {
				idx = 0
			}
			start := t.Start + offset + idx
			end := start + len(piece)
			out = append(out, token.Token{Start: start, End: end, Type: t.Type, Value: piece})
			offset += idx + len(piece)
		}
	}
	return out
}

func isWhitespaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// onlyComments: keep only Comment.Single / Comment.Multiline tokens.
func onlyComments(in []token.Token) []token.Token {
	out := make([]token.Token, 0, len(in))
	for _, t := range in {
		if t.Type == token.CommentSingle || t.Type == token.CommentMultiline {
			out = append(out, t)
		}
	}
	return out
}

// normalizeCase: lowercase every value.
func normalizeCase(in []token.Token) []token.Token {
	out := make([]token.Token, len(in))
	for i, t := range in {
		t.Value = strings.ToLower(t.Value)
		out[i] = t
	}
	return out
}

// words: retain only alphabetic/apostrophe/underscore/dash characters,
// split on whitespace, emit per word with offsets preserved. Mirrors
// the Python original's `re.sub("[^a-zA-Z'_-]", " ", t.val)` followed
// by a split: disallowed characters are masked to whitespace first, so
// a run like "foo123bar" (no real whitespace) splits into "foo" and
// "bar" at their own offsets instead of merging into one word.
func words(in []token.Token) []token.Token {
	out := make([]token.Token, 0, len(in))
	for _, t := range in {
		masked := maskNonWordChars(t.Value)
		offset := 0
		for _, piece := range strings.FieldsFunc(masked, isWhitespaceRune) {
			idx := strings.Index(masked[offset:], piece)
			if idx < 0 {
				idx = 0
			}
			start := t.Start + offset + idx
			end := start + len(piece)
			out = append(out, token.Token{Start: start, End: end, Type: t.Type, Value: piece})
			offset += idx + len(piece)
		}
	}
	return out
}

// maskNonWordChars replaces every character outside
// [a-zA-Z'_-] with a space, preserving the byte length of whatever it
// replaces so offsets computed against the masked string stay valid
// against the original.
func maskNonWordChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '\'' || r == '_' || r == '-' {
			b.WriteRune(r)
			continue
		}
		for i := 0; i < utf8.RuneLen(r); i++ {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
