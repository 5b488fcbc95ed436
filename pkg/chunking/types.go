package chunking

import "strings"

// TextPart is an atomic fragment of the document together with the size the
// estimator assigned to it when it was produced.
type TextPart struct {
	Text string `json:"text" yaml:"text"`
	Size int    `json:"size" yaml:"size"`
}

// Chunk is a group of consecutive parts. Overlap repeats the tail of the
// previous chunk; Content is new material.
type Chunk struct {
	Overlap []TextPart `json:"overlap,omitempty" yaml:"overlap,omitempty"`
	Content []TextPart `json:"content" yaml:"content"`
}

// Size is the summed size of overlap and content.
func (c Chunk) Size() int {
	return c.OverlapSize() + c.ContentSize()
}

// OverlapSize is the summed size of the overlap parts.
func (c Chunk) OverlapSize() int {
	return sumSizes(c.Overlap)
}

// ContentSize is the summed size of the content parts.
func (c Chunk) ContentSize() int {
	return sumSizes(c.Content)
}

// Parts returns overlap followed by content.
func (c Chunk) Parts() []TextPart {
	parts := make([]TextPart, 0, len(c.Overlap)+len(c.Content))
	parts = append(parts, c.Overlap...)
	return append(parts, c.Content...)
}

// Text concatenates overlap and content exactly as split, so separators
// left on the last part are kept.
func (c Chunk) Text() string {
	var b strings.Builder
	for _, p := range c.Overlap {
		b.WriteString(p.Text)
	}
	for _, p := range c.Content {
		b.WriteString(p.Text)
	}
	return b.String()
}

// TrimmedText is Text without leading and trailing whitespace.
func (c Chunk) TrimmedText() string {
	return strings.TrimSpace(c.Text())
}

// Chunks is the ordered result of chunking one document.
type Chunks []Chunk

// Texts returns the text of every chunk.
func (cs Chunks) Texts() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Text()
	}
	return out
}

// TrimmedTexts returns the trimmed text of every chunk.
func (cs Chunks) TrimmedTexts() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.TrimmedText()
	}
	return out
}

// TextParts returns the parts of every chunk, overlap included.
func (cs Chunks) TextParts() [][]TextPart {
	out := make([][]TextPart, len(cs))
	for i, c := range cs {
		out[i] = c.Parts()
	}
	return out
}

// ContentParts returns the content parts of all chunks in document order.
func (cs Chunks) ContentParts() []TextPart {
	var out []TextPart
	for _, c := range cs {
		out = append(out, c.Content...)
	}
	return out
}

func sumSizes(parts []TextPart) int {
	n := 0
	for _, p := range parts {
		n += p.Size
	}
	return n
}
