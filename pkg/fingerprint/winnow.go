package fingerprint

import (
	"github.com/panbanda/simcheck/pkg/span"
	"github.com/panbanda/simcheck/pkg/submission"
	"github.com/panbanda/simcheck/pkg/token"
)

// SourcedFingerprint is a Hash plus the Span of tokens that produced
// it (spec.md §3). Equality for comparison purposes is Hash-only; the
// Span is carried so a match can be reported to the user.
type SourcedFingerprint struct {
	Hash Hash
	Span span.Span
}

// Winnow runs spec.md §4.2's algorithm over tokens: hash every
// length-k sliding window of token values, then select one hash per
// window of w = t-k+1 consecutive k-gram hashes (rightmost minimum,
// not re-emitted if the previous window selected the same position).
// Fewer than k tokens yields no fingerprints.
func Winnow(file *submission.File, tokens []token.Token, k, t int, seed uint64) []SourcedFingerprint {
	if k <= 0 || len(tokens) < k {
		return nil
	}
	w := t - k + 1
	if w < 1 {
		w = 1
	}

	m := len(tokens) - k + 1
	hashes := make([]Hash, m)
	for i := 0; i < m; i++ {
		values := make([]string, k)
		for j := 0; j < k; j++ {
			values[j] = tokens[i+j].Value
		}
		hashes[i] = HashValues(values, seed)
	}

	numWindows := m - w + 1
	if numWindows < 1 {
		numWindows = 1
	}

	var out []SourcedFingerprint
	prevSelected := -1
	for start := 0; start < numWindows; start++ {
		end := start + w
		if end > m {
			end = m
		}
		minIdx := start
		for i := start + 1; i < end; i++ {
			// <= so ties break toward the rightmost position.
			if hashes[i] <= hashes[minIdx] {
				minIdx = i
			}
		}
		if minIdx == prevSelected {
			continue
		}
		prevSelected = minIdx
		out = append(out, SourcedFingerprint{
			Hash: hashes[minIdx],
			Span: span.New(file, tokens[minIdx].Start, tokens[minIdx+k-1].End),
		})
	}
	return out
}
