package tzlookup

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/snowex-etl-service/internal/observability"
	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

// CachedLocator wraps a TimezoneLocator with an in-memory LRU cache.
// Consecutive rows of a file are usually meters apart, so keys are rounded
// to four decimals (about 11 m).
type CachedLocator struct {
	inner   pipeline.TimezoneLocator
	cache   *lru.Cache[string, string]
	metrics *observability.Metrics
}

// NewCachedLocator creates a cache decorator around a locator.
func NewCachedLocator(inner pipeline.TimezoneLocator, maxEntries int, metrics *observability.Metrics) (*CachedLocator, error) {
	cache, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("timezone cache: %w", err)
	}
	return &CachedLocator{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedLocator) TimezoneAt(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if tz, ok := c.cache.Get(key); ok {
		c.metrics.TimezoneCache.WithLabelValues("hit").Inc()
		return tz, nil
	}
	c.metrics.TimezoneCache.WithLabelValues("miss").Inc()

	tz, err := c.inner.TimezoneAt(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, tz)
	return tz, nil
}

// Len is the number of cached coordinates.
func (c *CachedLocator) Len() int {
	return c.cache.Len()
}
