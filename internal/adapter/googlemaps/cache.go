package googlemaps

import (
	"context"
	"fmt"

	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/lru"
	"github.com/geofinch/disaster-monitor/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru.Cache[domain.Place]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   lru.New[domain.Place](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if place, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return place, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	place, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return place, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if place.FormattedAddress != "" {
		c.cache.Put(key, place)
	}
	return place, nil
}
