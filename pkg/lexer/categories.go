package lexer

import (
	"strings"

	"github.com/panbanda/simcheck/pkg/parser"
	"github.com/panbanda/simcheck/pkg/token"
)

// identifierNodeTypes are tree-sitter leaf kinds that denote a name
// occurrence across the grammars pkg/parser supports.
var identifierNodeTypes = map[string]bool{
	"identifier":                    true,
	"field_identifier":              true,
	"type_identifier":               true,
	"property_identifier":           true,
	"shorthand_property_identifier": true,
	"statement_identifier":          true,
	"package_identifier":            true,
	"constant":                      true,
	"variable_name":                 true,
	"simple_identifier":             true,
}

// builtinTypeKeywords are primitive/built-in type names, keyed by
// language, classified as Keyword.Type rather than Name even though
// tree-sitter often lexes them as plain identifiers/keywords.
var builtinTypeKeywords = map[parser.Language]map[string]bool{
	parser.LangGo: {
		"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
		"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
		"float32": true, "float64": true, "complex64": true, "complex128": true,
		"bool": true, "byte": true, "rune": true, "string": true, "error": true, "any": true,
	},
	parser.LangC: {
		"int": true, "char": true, "float": true, "double": true, "void": true,
		"short": true, "long": true, "unsigned": true, "signed": true, "size_t": true,
	},
	parser.LangCPP: {
		"int": true, "char": true, "float": true, "double": true, "void": true,
		"bool": true, "short": true, "long": true, "unsigned": true, "signed": true,
		"auto": true, "size_t": true,
	},
	parser.LangJava: {
		"int": true, "char": true, "float": true, "double": true, "void": true,
		"boolean": true, "short": true, "long": true, "byte": true, "String": true,
	},
	parser.LangCSharp: {
		"int": true, "char": true, "float": true, "double": true, "void": true,
		"bool": true, "short": true, "long": true, "byte": true, "string": true, "decimal": true, "object": true,
	},
	parser.LangTypeScript: {
		"number": true, "string": true, "boolean": true, "any": true, "void": true, "unknown": true, "never": true,
	},
	parser.LangTSX: {
		"number": true, "string": true, "boolean": true, "any": true, "void": true, "unknown": true, "never": true,
	},
	parser.LangRust: {
		"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
		"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
		"f32": true, "f64": true, "bool": true, "char": true, "str": true,
	},
}

// stringNodeSuffixes are substrings that, when found in a leaf's node
// type, mark it as a String token across grammars (string_literal,
// interpreted_string_literal, raw_string_literal, template_string, ...).
var stringNodeSuffixes = []string{"string", "char_literal", "rune_literal"}

// integerNodeTypes and floatNodeTypes list exact leaf kinds that are
// unambiguous across grammars.
var integerNodeTypes = map[string]bool{
	"integer": true, "int_literal": true, "decimal_literal": true,
	"integer_literal": true, "hex_literal": true, "octal_literal": true, "binary_literal": true,
}
var floatNodeTypes = map[string]bool{
	"float": true, "float_literal": true, "decimal_floating_point_literal": true,
	"hex_floating_point_literal": true,
}

// categorize maps one tree-sitter leaf (its node type and literal text)
// to the hierarchical token category the preprocessor primitives key
// on. This is the adapter between the external highlighter (spec.md
// §6) and the token model (spec.md §3).
func categorize(lang parser.Language, nodeType, text string) token.Category {
	switch {
	case strings.Contains(nodeType, "comment"):
		return categorizeComment(text)
	case nodeType == "hashbang" || nodeType == "shebang":
		return token.CommentHashbang
	case identifierNodeTypes[nodeType]:
		if builtinTypeKeywords[lang][text] {
			return token.KeywordType
		}
		return token.Name
	case nodeType == "primitive_type" || nodeType == "predefined_type" || nodeType == "builtin_type":
		return token.KeywordType
	case integerNodeTypes[nodeType]:
		return token.NumberInteger
	case floatNodeTypes[nodeType]:
		return token.NumberFloat
	case nodeType == "number" || nodeType == "number_literal" || nodeType == "numeric_literal":
		return classifyNumberText(text)
	case containsAny(nodeType, stringNodeSuffixes):
		return token.String
	case isOperatorText(text):
		return token.Operator
	case isPunctuationText(text):
		return token.Punctuation
	case looksLikeKeyword(nodeType, text):
		if builtinTypeKeywords[lang][text] {
			return token.KeywordType
		}
		return token.Keyword
	default:
		return token.Text
	}
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// categorizeComment distinguishes single-line from multi-line comment
// text, since most grammars use one "comment" node type for both.
func categorizeComment(text string) token.Category {
	if strings.HasPrefix(text, "#!") {
		return token.CommentHashbang
	}
	if strings.HasPrefix(text, "/*") || strings.Contains(text, "\n") {
		return token.CommentMultiline
	}
	return token.CommentSingle
}

func classifyNumberText(text string) token.Category {
	if strings.ContainsAny(text, ".eE") && !strings.HasPrefix(text, "0x") && !strings.HasPrefix(text, "0X") {
		return token.NumberFloat
	}
	return token.NumberInteger
}

// looksLikeKeyword reports whether a leaf is a bare alphabetic terminal
// whose node type equals its own text — the common tree-sitter pattern
// for reserved words (func, return, def, class, ...).
func looksLikeKeyword(nodeType, text string) bool {
	if nodeType != text {
		return false
	}
	if text == "" {
		return false
	}
	for _, r := range text {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

func isOperatorText(text string) bool {
	switch text {
	case "+", "-", "*", "/", "%", "=", "==", "!=", "<", ">", "<=", ">=",
		"&&", "||", "!", "&", "|", "^", "~", "<<", ">>", "+=", "-=", "*=", "/=",
		"%=", "&=", "|=", "^=", "->", "=>", ":=", "++", "--":
		return true
	}
	return false
}

func isPunctuationText(text string) bool {
	switch text {
	case "(", ")", "{", "}", "[", "]", ",", ";", ":", ".", "...":
		return true
	}
	return false
}
