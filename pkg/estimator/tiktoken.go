package estimator

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

// DefaultEncoding is the BPE encoding used when none is given.
const DefaultEncoding = "cl100k_base"

// Tiktoken counts BPE tokens with an OpenAI encoding.
type Tiktoken struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding, or the encoding used by the named
// model. Encodings are fetched and cached by tiktoken-go on first use, so a
// failure here usually means the BPE ranks could not be downloaded; it is
// reported as a missing dependency.
func NewTiktoken(encodingOrModel string) (*Tiktoken, error) {
	if encodingOrModel == "" {
		encodingOrModel = DefaultEncoding
	}

	tke, err := tiktoken.GetEncoding(encodingOrModel)
	if err != nil {
		var modelErr error
		tke, modelErr = tiktoken.EncodingForModel(encodingOrModel)
		if modelErr != nil {
			return nil, chunkerr.MissingDependency(
				"tiktoken:"+encodingOrModel,
				"use a known encoding such as cl100k_base or set TIKTOKEN_CACHE_DIR to a directory holding the BPE files",
				err,
			)
		}
	}

	return &Tiktoken{encoding: encodingOrModel, tke: tke}, nil
}

// Encoding returns the encoding or model name the estimator was built with.
func (t *Tiktoken) Encoding() string {
	return t.encoding
}

// EstimateSize returns the number of tokens in text.
func (t *Tiktoken) EstimateSize(_ context.Context, text string) (int, error) {
	return len(t.tke.Encode(text, nil, nil)), nil
}

// Segment returns the decoded text of each token. Tokens that only carry
// part of a multi-byte character are merged with their successors until the
// piece is valid UTF-8.
func (t *Tiktoken) Segment(_ context.Context, text string) ([]string, error) {
	tokens := t.tke.Encode(text, nil, nil)
	out := make([]string, 0, len(tokens))

	var pending []int
	for _, tok := range tokens {
		pending = append(pending, tok)
		piece := t.tke.Decode(pending)
		if !utf8.ValidString(piece) {
			continue
		}
		out = append(out, piece)
		pending = pending[:0]
	}
	if len(pending) > 0 {
		out = append(out, t.tke.Decode(pending))
	}
	return out, nil
}

func (t *Tiktoken) String() string {
	return fmt.Sprintf("tiktoken(%s)", t.encoding)
}
