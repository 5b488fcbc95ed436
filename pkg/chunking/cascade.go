package chunking

import (
	"context"
	"fmt"
	"strings"
)

// SplitText runs the splitter cascade over text and hands every atomic part
// to yield in document order. A piece larger than the chunk size is passed
// to the next splitter; the last splitter's output is accepted whatever its
// size. Errors from splitters, the estimator or yield are returned as is,
// and so is ctx.Err() once ctx is done.
func (c *RecursiveChunker) SplitText(ctx context.Context, text string, yield func(TextPart) error) error {
	return c.split(ctx, text, 0, yield)
}

func (c *RecursiveChunker) split(ctx context.Context, text string, level int, yield func(TextPart) error) error {
	pieces, err := c.splitters[level].Split(ctx, text)
	if err != nil {
		return err
	}

	last := len(c.splitters) - 1
	for _, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return err
		}
		size, err := c.estimator.EstimateSize(ctx, piece)
		if err != nil {
			return err
		}
		if size < 0 {
			return fmt.Errorf("size estimator %T returned negative size %d", c.estimator, size)
		}

		// Whitespace-only pieces have nothing left to split on.
		if size > c.chunkSize && level < last && strings.TrimSpace(piece) != "" {
			c.logger.Debug("piece exceeds chunk size, escalating", "level", level+1, "size", size, "chunk_size", c.chunkSize)
			if err := c.split(ctx, piece, level+1, yield); err != nil {
				return err
			}
			continue
		}

		if err := yield(TextPart{Text: piece, Size: size}); err != nil {
			return err
		}
	}
	return nil
}
