package splitter

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

// LangChain adapts a langchaingo text splitter. langchaingo trims the pieces
// it returns, so they are realigned onto the input to keep the whitespace
// between them.
type LangChain struct {
	ts textsplitter.TextSplitter
}

// NewLangChain wraps ts.
func NewLangChain(ts textsplitter.TextSplitter) *LangChain {
	return &LangChain{ts: ts}
}

// NewParagraphs groups blank-line separated paragraphs into pieces of at
// most maxRunes characters. A single longer paragraph forms its own piece.
func NewParagraphs(maxRunes int) *LangChain {
	if maxRunes <= 0 {
		maxRunes = 1000
	}
	return NewLangChain(textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators([]string{"\n\n"}),
		textsplitter.WithChunkSize(maxRunes),
		textsplitter.WithChunkOverlap(0),
	))
}

// Split validates text and splits it with the wrapped splitter.
func (l *LangChain) Split(_ context.Context, text string) ([]string, error) {
	if err := chunkerr.ValidateText(text); err != nil {
		return nil, err
	}
	parts, err := l.ts.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("langchain split: %w", err)
	}
	return alignUnits(text, parts), nil
}
