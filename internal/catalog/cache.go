package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/nextscene/backend/internal/models"
)

type searchEntryCache struct {
	items   []models.CatalogItem
	expires time.Time
}

type detailEntryCache struct {
	detail  models.CatalogDetail
	expires time.Time
}

// CachingProvider wraps another Provider with a TTL-based in-memory cache.
// Catalog records are read-only upstream, so staleness within the TTL is
// acceptable.
type CachingProvider struct {
	base Provider
	ttl  time.Duration

	mu       sync.RWMutex
	searches map[string]searchEntryCache
	details  map[string]detailEntryCache
}

// NewCachingProvider returns a Provider that caches lookups for the provided TTL.
func NewCachingProvider(base Provider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{
		base:     base,
		ttl:      ttl,
		searches: make(map[string]searchEntryCache),
		details:  make(map[string]detailEntryCache),
	}
}

// Search returns cached results when available, otherwise it delegates to the
// underlying provider and stores the result.
func (c *CachingProvider) Search(ctx context.Context, query string, kind models.ContentKind) ([]models.CatalogItem, error) {
	if c == nil || c.base == nil {
		return nil, ErrProviderUnavailable
	}

	key := string(kind) + "\x00" + query
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.searches[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.items, nil
	}

	items, err := c.base.Search(ctx, query, kind)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.searches[key] = searchEntryCache{items: items, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return items, nil
}

// Detail returns the cached detail record when available, otherwise it
// delegates to the underlying provider and stores the result.
func (c *CachingProvider) Detail(ctx context.Context, id string) (models.CatalogDetail, error) {
	if c == nil || c.base == nil {
		return models.CatalogDetail{}, ErrProviderUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.details[id]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.detail, nil
	}

	detail, err := c.base.Detail(ctx, id)
	if err != nil {
		return models.CatalogDetail{}, err
	}

	c.mu.Lock()
	c.details[id] = detailEntryCache{detail: detail, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return detail, nil
}
