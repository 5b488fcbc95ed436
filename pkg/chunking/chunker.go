// Package chunking partitions text into size-bounded chunks.
//
// A RecursiveChunker runs a cascade of splitters from coarse to fine until
// every piece fits the chunk size, then packs the pieces into chunks. With a
// non-zero overlap ratio each chunk starts with the trailing parts of the one
// before it. A FixedSizeChunker skips the cascade and packs unit-size
// segments produced by the estimator itself.
//
// Chunkers are immutable after construction and safe for concurrent use.
package chunking

import (
	"context"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
	"github.com/shivavenkatesh/segmenta/pkg/estimator"
	"github.com/shivavenkatesh/segmenta/pkg/splitter"
)

// DefaultChunkSize is the chunk size DefaultConfig uses.
const DefaultChunkSize = 1000

// Chunker splits a document into chunks.
type Chunker interface {
	Chunk(ctx context.Context, text string) (Chunks, error)
}

// Config configures a chunker.
type Config struct {
	// ChunkSize is the size budget of a chunk in estimator units.
	ChunkSize int
	// OverlapRatio is the share of ChunkSize, in [0, 1], reserved for
	// parts repeated from the previous chunk.
	OverlapRatio float64
	// SizeEstimator measures parts. Defaults to word count.
	SizeEstimator estimator.SizeEstimator
	// TextSplitters run before the default cascade, coarsest first.
	TextSplitters []splitter.TextSplitter
	// OverlapPolicy decides how the overlap window is trimmed.
	OverlapPolicy OverlapPolicy
	// Logger receives debug output. Defaults to a discarding logger.
	Logger *log.Logger
}

// DefaultConfig returns a config with a chunk size of 1000 words and no overlap.
func DefaultConfig() Config {
	return Config{
		ChunkSize:     DefaultChunkSize,
		SizeEstimator: estimator.Word{},
	}
}

// Validate reports unusable settings as chunkerr.ErrInvalidConfig.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return chunkerr.Invalidf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if math.IsNaN(c.OverlapRatio) || c.OverlapRatio < 0 || c.OverlapRatio > 1 {
		return chunkerr.Invalidf("overlap ratio must be between 0 and 1, got %v", c.OverlapRatio)
	}
	if !c.OverlapPolicy.valid() {
		return chunkerr.Invalidf("unknown overlap policy %d", int(c.OverlapPolicy))
	}
	for i, s := range c.TextSplitters {
		if s == nil {
			return chunkerr.Invalidf("text splitter %d is nil", i)
		}
	}
	return nil
}

// OverlapSize is the overlap budget: ChunkSize*OverlapRatio rounded down.
func (c Config) OverlapSize() int {
	return int(float64(c.ChunkSize) * c.OverlapRatio)
}

func (c Config) estimator() estimator.SizeEstimator {
	if c.SizeEstimator == nil {
		return estimator.Word{}
	}
	return c.SizeEstimator
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard)
	}
	return c.Logger
}

// ChunkText splits text with a RecursiveChunker built from cfg.
func ChunkText(ctx context.Context, text string, cfg Config) (Chunks, error) {
	c, err := NewRecursiveChunker(cfg)
	if err != nil {
		return nil, err
	}
	return c.Chunk(ctx, text)
}

// base holds what both chunkers share.
type base struct {
	chunkSize   int
	overlapSize int
	policy      OverlapPolicy
	estimator   estimator.SizeEstimator
	logger      *log.Logger
}

func newBase(cfg Config) (base, error) {
	if err := cfg.Validate(); err != nil {
		return base{}, err
	}
	return base{
		chunkSize:   cfg.ChunkSize,
		overlapSize: cfg.OverlapSize(),
		policy:      cfg.OverlapPolicy,
		estimator:   cfg.estimator(),
		logger:      cfg.logger(),
	}, nil
}

// ChunkSize returns the chunk budget.
func (b base) ChunkSize() int { return b.chunkSize }

// OverlapSize returns the overlap budget.
func (b base) OverlapSize() int { return b.overlapSize }

// SizeEstimator returns the estimator in use.
func (b base) SizeEstimator() estimator.SizeEstimator { return b.estimator }

func (b base) assemble(text string, split func(yield func(TextPart) error) error) (Chunks, error) {
	if err := chunkerr.ValidateText(text); err != nil {
		return nil, err
	}

	a := newAssembler(b.chunkSize, b.overlapSize, b.policy)
	if err := split(a.add); err != nil {
		return nil, err
	}
	chunks := a.finish()

	b.logger.Debug("chunked text", "chunks", len(chunks), "chunk_size", b.chunkSize, "overlap_size", b.overlapSize)
	return chunks, nil
}

// RecursiveChunker splits text with a cascade of splitters.
type RecursiveChunker struct {
	base
	splitters []splitter.TextSplitter
}

// NewRecursiveChunker validates cfg and builds a chunker whose cascade is
// cfg.TextSplitters followed by splitter.Defaults().
func NewRecursiveChunker(cfg Config) (*RecursiveChunker, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}

	splitters := make([]splitter.TextSplitter, 0, len(cfg.TextSplitters)+4)
	splitters = append(splitters, cfg.TextSplitters...)
	splitters = append(splitters, splitter.Defaults()...)

	return &RecursiveChunker{base: b, splitters: splitters}, nil
}

// Splitters returns the full cascade, coarsest first.
func (c *RecursiveChunker) Splitters() []splitter.TextSplitter {
	out := make([]splitter.TextSplitter, len(c.splitters))
	copy(out, c.splitters)
	return out
}

// Chunk splits text into chunks.
func (c *RecursiveChunker) Chunk(ctx context.Context, text string) (Chunks, error) {
	return c.assemble(text, func(yield func(TextPart) error) error {
		return c.SplitText(ctx, text, yield)
	})
}

// FixedSizeChunker packs the unit-size segments of its estimator.
type FixedSizeChunker struct {
	base
	segmenter estimator.Segmenter
}

// NewFixedSizeChunker builds a fixed-size chunker. The estimator must be
// able to segment text, as estimator.Char, estimator.Word and
// estimator.Tiktoken can.
func NewFixedSizeChunker(cfg Config) (*FixedSizeChunker, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	seg, ok := estimator.AsSegmenter(b.estimator)
	if !ok {
		return nil, chunkerr.Invalidf("size estimator %T cannot segment text", b.estimator)
	}
	return &FixedSizeChunker{base: b, segmenter: seg}, nil
}

// Chunk splits text into chunks of at most ChunkSize segments.
func (c *FixedSizeChunker) Chunk(ctx context.Context, text string) (Chunks, error) {
	return c.assemble(text, func(yield func(TextPart) error) error {
		segments, err := c.segmenter.Segment(ctx, text)
		if err != nil {
			return err
		}
		for _, s := range segments {
			if s == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := yield(TextPart{Text: s, Size: 1}); err != nil {
				return err
			}
		}
		return nil
	})
}

var (
	_ Chunker = (*RecursiveChunker)(nil)
	_ Chunker = (*FixedSizeChunker)(nil)
)
