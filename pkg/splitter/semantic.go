package splitter

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

// DefaultTextLimit is the number of characters a semantic model sees at once
// when no limit is configured.
const DefaultTextLimit = 1_000_000

// UnitFunc splits a window of text into semantic units such as sentences.
// Units may be normalised (trimmed); they are aligned back onto the text.
type UnitFunc func(ctx context.Context, text string) ([]string, error)

// Semantic wraps a model-backed UnitFunc. Texts longer than the text limit
// are fed to the model in windows; every window after the first restarts at
// the beginning of the last unit of the previous one, so units are never cut
// at a window edge.
type Semantic struct {
	units     UnitFunc
	textLimit int
}

// NewSemantic creates a Semantic splitter. A non-positive textLimit selects
// DefaultTextLimit.
func NewSemantic(units UnitFunc, textLimit int) *Semantic {
	if textLimit <= 0 {
		textLimit = DefaultTextLimit
	}
	return &Semantic{units: units, textLimit: textLimit}
}

// TextLimit returns the window size in characters.
func (s *Semantic) TextLimit() int {
	return s.textLimit
}

// Split validates text and splits it window by window.
func (s *Semantic) Split(ctx context.Context, text string) ([]string, error) {
	if err := chunkerr.ValidateText(text); err != nil {
		return nil, err
	}
	return splitWindowed(ctx, text, s.textLimit, s.units)
}

func splitWindowed(ctx context.Context, text string, limit int, units UnitFunc) ([]string, error) {
	runes := []rune(text)
	n := len(runes)

	var parts []string
	carry := 0
	for i := 0; i < n; i += limit {
		window := string(runes[i-carry : min(i+limit, n)])
		last := i >= n-limit

		if strings.TrimSpace(window) == "" {
			carry = 0
			continue
		}

		got, err := units(ctx, window)
		if err != nil {
			return nil, err
		}
		got = alignUnits(window, got)
		if last {
			parts = append(parts, got...)
			break
		}

		if len(got) == 0 {
			carry = 0
			continue
		}
		tail := got[len(got)-1]
		parts = append(parts, got[:len(got)-1]...)
		if idx := strings.LastIndex(window, tail); idx >= 0 {
			carry = utf8.RuneCountInString(window[idx:])
		} else {
			carry = utf8.RuneCountInString(tail)
		}
	}
	return parts, nil
}

// alignUnits maps units produced by a model back onto text. Each returned
// piece runs from the start of its unit to the start of the next one, so
// whitespace between units stays attached to the preceding piece and the
// pieces concatenate to text. Units that cannot be located are merged into
// their predecessor. If no unit is found the text is returned whole.
func alignUnits(text string, units []string) []string {
	var starts []int
	cursor := 0
	for _, u := range units {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		idx := strings.Index(text[cursor:], u)
		if idx < 0 {
			continue
		}
		starts = append(starts, cursor+idx)
		cursor += idx + len(u)
	}
	if len(starts) == 0 {
		return []string{text}
	}

	starts[0] = 0
	pieces := make([]string, 0, len(starts))
	for k, start := range starts {
		end := len(text)
		if k+1 < len(starts) {
			end = starts[k+1]
		}
		pieces = append(pieces, text[start:end])
	}
	return pieces
}
