// Package estimator measures text under different cost models.
//
// A SizeEstimator turns a fragment into a non-negative integer cost: runes,
// words, BPE tokens or whatever a remote tokenizer reports. Estimators that
// can also cut text into unit-cost pieces implement Segmenter, which is what
// the fixed-size chunker builds on.
package estimator

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SizeEstimator maps text to a cost. Implementations must be deterministic
// and safe for concurrent use.
type SizeEstimator interface {
	EstimateSize(ctx context.Context, text string) (int, error)
}

// Segmenter cuts text into consecutive pieces of cost one each.
// Concatenating the pieces yields the input, up to leading whitespace.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]string, error)
}

// Func adapts a plain function to SizeEstimator.
type Func func(ctx context.Context, text string) (int, error)

// EstimateSize calls f.
func (f Func) EstimateSize(ctx context.Context, text string) (int, error) {
	return f(ctx, text)
}

// AsSegmenter returns the Segmenter behind e, looking through wrappers that
// expose Unwrap() SizeEstimator.
func AsSegmenter(e SizeEstimator) (Segmenter, bool) {
	for e != nil {
		if s, ok := e.(Segmenter); ok {
			return s, true
		}
		u, ok := e.(interface{ Unwrap() SizeEstimator })
		if !ok {
			return nil, false
		}
		e = u.Unwrap()
	}
	return nil, false
}

// Char counts Unicode code points.
type Char struct{}

// EstimateSize returns the number of runes in text.
func (Char) EstimateSize(_ context.Context, text string) (int, error) {
	return utf8.RuneCountInString(text), nil
}

// Segment returns one piece per rune.
func (Char) Segment(_ context.Context, text string) ([]string, error) {
	out := make([]string, 0, utf8.RuneCountInString(text))
	for len(text) > 0 {
		_, n := utf8.DecodeRuneInString(text)
		out = append(out, text[:n])
		text = text[n:]
	}
	return out, nil
}

// Word counts whitespace separated words.
type Word struct{}

// EstimateSize returns the number of words in text.
func (Word) EstimateSize(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// Segment returns one piece per word, each keeping the whitespace that
// follows it. Whitespace before the first word is attached to that word.
func (Word) Segment(_ context.Context, text string) ([]string, error) {
	var out []string
	start := 0
	seenWord, inSpace := false, false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inSpace = seenWord
			continue
		}
		if inSpace {
			out = append(out, text[start:i])
			start = i
			inSpace = false
		}
		seenWord = true
	}
	if seenWord {
		out = append(out, text[start:])
	}
	return out, nil
}
