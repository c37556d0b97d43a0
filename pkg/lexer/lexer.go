// Package lexer adapts the tree-sitter multi-language parser in
// pkg/parser into the external highlighter contract of spec.md §6: it
// walks a parsed file's leaves in source order and emits a token per
// leaf plus a Text token for each gap between them, so the resulting
// stream covers the file contiguously from offset 0 to len(text).
package lexer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/simcheck/pkg/parser"
	"github.com/panbanda/simcheck/pkg/token"
)

// Lex selects a language by path (extension-based, per spec.md §6),
// parses source, and returns its contiguous token stream. A non-nil
// error is a LexError: the returned tokens are always a valid,
// plain-text fallback stream so callers never need to special-case a
// lex failure, matching spec.md §7's "file is treated as plain text"
// policy.
func Lex(path string, source []byte) ([]token.Token, error) {
	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		return plainText(source), nil
	}

	p := parser.New()
	defer p.Close()

	result, err := p.Parse(source, lang, path)
	if err != nil {
		return plainText(source), err
	}

	leaves := collectLeaves(result.Tree.RootNode(), source)
	return fillGaps(leaves, source, lang), nil
}

// leaf is one tree-sitter terminal node's byte range and type.
type leaf struct {
	start, end int
	nodeType   string
	text       string
}

// collectLeaves walks the AST and returns its leaf nodes (ChildCount ==
// 0) in source order; tree-sitter children are already left-to-right.
func collectLeaves(root *sitter.Node, source []byte) []leaf {
	var leaves []leaf
	parser.Walk(root, source, func(n *sitter.Node, src []byte) bool {
		if n.ChildCount() > 0 {
			return true
		}
		start, end := int(n.StartByte()), int(n.EndByte())
		if start >= end {
			return true
		}
		leaves = append(leaves, leaf{start: start, end: end, nodeType: n.Type(), text: string(src[start:end])})
		return true
	})
	return leaves
}

// fillGaps converts leaves into the contiguous token stream, inserting
// a Text token for every uncovered byte range (whitespace, and any
// grammar extras the walk skipped).
func fillGaps(leaves []leaf, source []byte, lang parser.Language) []token.Token {
	var tokens []token.Token
	pos := 0
	for _, l := range leaves {
		if l.start < pos {
			continue // overlapping/duplicate leaf; keep first occurrence
		}
		if l.start > pos {
			tokens = append(tokens, token.Token{Start: pos, End: l.start, Type: token.Text, Value: string(source[pos:l.start])})
		}
		tokens = append(tokens, token.Token{Start: l.start, End: l.end, Type: categorize(lang, l.nodeType, l.text), Value: l.text})
		pos = l.end
	}
	if pos < len(source) {
		tokens = append(tokens, token.Token{Start: pos, End: len(source), Type: token.Text, Value: string(source[pos:])})
	}
	return tokens
}

// plainText is the lexer-unavailable fallback: the whole file as one
// Text token, per spec.md §6's "plain-text fallback".
func plainText(source []byte) []token.Token {
	if len(source) == 0 {
		return nil
	}
	return []token.Token{{Start: 0, End: len(source), Type: token.Text, Value: string(source)}}
}
