// Package splitter cuts text into ordered, non-empty pieces.
//
// Every splitter keeps the material it splits on: concatenating the pieces
// gives back the input, except for whitespace-only fragments that the
// separator splitters drop.
package splitter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

// TextSplitter splits text into pieces. Implementations must be safe for
// concurrent use and must reject empty or whitespace-only input with
// chunkerr.ErrInvalidText.
type TextSplitter interface {
	Split(ctx context.Context, text string) ([]string, error)
}

// Func adapts a function to TextSplitter. The input is validated before fn
// is called.
type Func func(ctx context.Context, text string) ([]string, error)

// Split validates text and calls f.
func (f Func) Split(ctx context.Context, text string) ([]string, error) {
	if err := chunkerr.ValidateText(text); err != nil {
		return nil, err
	}
	return f(ctx, text)
}

// Separator splits on a literal separator and keeps it at the end of every
// piece but the last.
type Separator struct {
	sep string
}

// NewSeparator returns a splitter for sep, which must not be empty.
func NewSeparator(sep string) (*Separator, error) {
	if sep == "" {
		return nil, chunkerr.Invalidf("separator must not be empty")
	}
	return &Separator{sep: sep}, nil
}

func mustSeparator(sep string) *Separator {
	s, err := NewSeparator(sep)
	if err != nil {
		panic(err)
	}
	return s
}

// Built-in separators.
var (
	Semicolon = mustSeparator("; ")
	Colon     = mustSeparator(": ")
	Comma     = mustSeparator(", ")
	Word      = mustSeparator(" ")
	FullStop  = mustSeparator(". ")
	Newline   = mustSeparator("\n")
)

// Defaults returns the cascade used when no splitters are configured,
// coarsest first.
func Defaults() []TextSplitter {
	return []TextSplitter{Semicolon, Colon, Comma, Word}
}

// Separator returns the literal the splitter cuts on.
func (s *Separator) Separator() string {
	return s.sep
}

// Split cuts text on the separator. Pieces that are empty or a single space
// are dropped. When nothing is left the text is returned whole.
//
// The last piece only loses the separator appended to it by Split. When the
// text itself ends with the separator, just its trailing whitespace is
// removed, so "One. Two. " ends in "Two.".
func (s *Separator) Split(_ context.Context, text string) ([]string, error) {
	if err := chunkerr.ValidateText(text); err != nil {
		return nil, err
	}

	raw := strings.Split(text, s.sep)
	pieces := make([]string, 0, len(raw))
	tailKept := false
	for _, p := range raw {
		tailKept = p != "" && p != " "
		if !tailKept {
			continue
		}
		pieces = append(pieces, p+s.sep)
	}
	if len(pieces) == 0 {
		return []string{text}, nil
	}

	last := len(pieces) - 1
	if tailKept {
		pieces[last] = strings.TrimSuffix(pieces[last], s.sep)
	} else {
		space := s.sep[len(strings.TrimRightFunc(s.sep, unicode.IsSpace)):]
		pieces[last] = strings.TrimSuffix(pieces[last], space)
	}
	return pieces, nil
}

func (s *Separator) String() string {
	return fmt.Sprintf("separator(%s)", strconv.Quote(s.sep))
}
