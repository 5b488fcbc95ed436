package estimator

import (
	"context"

	"github.com/shivavenkatesh/segmenta/internal/cache"
)

// Cached memoises another estimator. Only successful estimates are kept.
type Cached struct {
	inner SizeEstimator
	cache *cache.SizeCache
}

// NewCached wraps inner with a cache of the given capacity.
func NewCached(inner SizeEstimator, capacity int) *Cached {
	return &Cached{inner: inner, cache: cache.NewSizeCache(capacity)}
}

// EstimateSize returns the cached size of text, computing it on a miss.
func (c *Cached) EstimateSize(ctx context.Context, text string) (int, error) {
	if n, ok := c.cache.Get(text); ok {
		return n, nil
	}
	n, err := c.inner.EstimateSize(ctx, text)
	if err != nil {
		return 0, err
	}
	c.cache.Put(text, n)
	return n, nil
}

// Unwrap returns the wrapped estimator.
func (c *Cached) Unwrap() SizeEstimator {
	return c.inner
}

// Stats returns cache statistics.
func (c *Cached) Stats() cache.Stats {
	return c.cache.Stats()
}
