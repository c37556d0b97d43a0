package compare

// commonWords is a small built-in dictionary of common English words,
// used by Misspellings (SPEC_FULL.md §4's supplemented feature) to
// decide whether a comment word is a "misspelling fingerprint"
// candidate: any word absent from this set qualifies. This is
// intentionally not exhaustive — compare50's own misspellings
// comparator (filtered out of original_source/ by the retrieval
// pack's code+build-config cap) is not available to crib the real
// dictionary from, so this set covers common function words and
// frequent comment vocabulary rather than claiming spell-check
// completeness.
var commonWords = buildCommonWords()

func buildCommonWords() map[string]bool {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "while",
		"do", "of", "in", "on", "at", "to", "from", "with", "without", "by", "as",
		"is", "are", "was", "were", "be", "been", "being", "this", "that", "these",
		"those", "it", "its", "we", "you", "i", "he", "she", "they", "them", "their",
		"not", "no", "yes", "can", "cannot", "could", "should", "would", "will",
		"may", "might", "must", "shall", "have", "has", "had", "need", "needs",
		"return", "returns", "returning", "function", "method", "class", "object",
		"value", "values", "variable", "variables", "parameter", "parameters",
		"argument", "arguments", "result", "results", "error", "errors", "check",
		"checks", "checking", "note", "notes", "todo", "fixme", "bug", "fix", "fixed",
		"fixes", "implement", "implements", "implementation", "example", "examples",
		"test", "tests", "testing", "case", "cases", "default", "true", "false",
		"null", "none", "empty", "list", "array", "set", "map", "dict", "string",
		"int", "integer", "float", "double", "bool", "boolean", "char", "byte",
		"number", "numbers", "loop", "loops", "iterate", "iteration", "index",
		"indices", "first", "last", "next", "previous", "new", "old", "update",
		"updates", "updated", "create", "creates", "created", "creating", "delete",
		"deletes", "deleted", "remove", "removes", "removed", "add", "adds",
		"added", "adding", "get", "gets", "getting", "set", "sets", "setting",
		"here", "there", "where", "when", "what", "why", "how", "which", "who",
		"one", "two", "three", "four", "five", "all", "some", "any", "each",
		"every", "other", "another", "same", "different", "before", "after",
		"above", "below", "between", "because", "since", "so", "than", "more",
		"most", "less", "least", "very", "just", "only", "also", "still", "even",
		"up", "down", "out", "over", "under", "again", "once", "twice", "end",
		"begin", "start", "stop", "continue", "break", "file", "files", "line",
		"lines", "code", "data", "type", "types", "name", "names", "call", "calls",
		"called", "calling", "input", "inputs", "output", "outputs", "use", "uses",
		"used", "using", "make", "makes", "making", "made", "work", "works",
		"working", "worked", "handle", "handles", "handling", "handled", "pass",
		"passes", "passed", "passing", "helper", "helpers", "main", "init",
		"initialize", "initializes", "initialized", "config", "configuration",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// isKnownWord reports whether value (already lower-cased) is a
// recognized common-English word.
func isKnownWord(value string) bool {
	return commonWords[value]
}
