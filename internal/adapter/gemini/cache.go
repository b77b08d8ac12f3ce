package gemini

import (
	"context"

	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/lru"
	"github.com/geofinch/disaster-monitor/internal/observability"
)

// CachedEmbedder wraps an Embedder with an in-memory LRU cache keyed by the
// input text. Besides saving API calls, it guarantees identical vectors for
// repeated inputs within a run.
type CachedEmbedder struct {
	inner   domain.Embedder
	cache   *lru.Cache[[]float32]
	metrics *observability.Metrics
}

// NewCachedEmbedder creates a cache decorator around an embedder.
func NewCachedEmbedder(inner domain.Embedder, maxEntries int, metrics *observability.Metrics) *CachedEmbedder {
	return &CachedEmbedder{
		inner:   inner,
		cache:   lru.New[[]float32](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		c.metrics.EmbedCache.WithLabelValues("hit").Inc()
		return vec, nil
	}
	c.metrics.EmbedCache.WithLabelValues("miss").Inc()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		c.cache.Put(text, vec)
	}
	return vec, nil
}
