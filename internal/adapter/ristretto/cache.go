// Package ristretto caches rendered-template sources in-process using
// dgraph-io/ristretto, in front of any templatestore.Store.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/StackForge/internal/port/templatestore"
)

// TemplateCache wraps a template store. Hits are served from memory; misses
// are loaded once per key even under concurrent callers. Not-found results
// are not cached so newly added overlay templates become visible.
type TemplateCache struct {
	inner templatestore.Store
	c     *ristretto.Cache[string, string]
	ttl   time.Duration
	group singleflight.Group
}

// NewTemplateCache creates a cache of at most maxCostBytes template bytes.
// A zero ttl keeps entries until evicted.
func NewTemplateCache(inner templatestore.Store, maxCostBytes int64, ttl time.Duration) (*TemplateCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &TemplateCache{inner: inner, c: c, ttl: ttl}, nil
}

// Load returns the cached template or loads it from the wrapped store.
func (tc *TemplateCache) Load(ctx context.Context, key string) (string, error) {
	if v, ok := tc.c.Get(key); ok {
		return v, nil
	}
	v, err, _ := tc.group.Do(key, func() (any, error) {
		text, err := tc.inner.Load(ctx, key)
		if err != nil {
			return "", err
		}
		tc.c.SetWithTTL(key, text, int64(len(text))+1, tc.ttl)
		tc.c.Wait()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops a single key.
func (tc *TemplateCache) Invalidate(key string) {
	tc.c.Del(key)
}

// Clear drops every cached template.
func (tc *TemplateCache) Clear() {
	tc.c.Clear()
}

// Close shuts down the cache and releases resources.
func (tc *TemplateCache) Close() {
	tc.c.Close()
}
