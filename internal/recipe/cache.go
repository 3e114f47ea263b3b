package recipe

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"fridgechef/internal/metrics"
)

const (
	cacheKeyIngredients = "ingredients"
	cacheKeyRecipes     = "recipes"
)

// CachedStore memoizes the ingredient vocabulary and the recipe list of the
// wrapped Store. Writes that change either drop the cached copy. Counters are
// always read through. Returned maps and slices are shared and must not be
// modified by callers.
//
// A read only stores its result when no write completed while it was
// fetching; gen counts completed writes.
type CachedStore struct {
	Store
	cache *lru.Cache[string, any]

	mu  sync.Mutex
	gen uint64
}

var _ Store = (*CachedStore)(nil)

// NewCachedStore wraps store with a memo cache of the given size.
func NewCachedStore(store Store, size int) (*CachedStore, error) {
	if size < 2 {
		size = 2
	}
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("create store cache: %w", err)
	}
	return &CachedStore{Store: store, cache: cache}, nil
}

func (c *CachedStore) ListIngredientNames(ctx context.Context) (map[string]struct{}, error) {
	if v, ok := c.lookup(cacheKeyIngredients); ok {
		return v.(map[string]struct{}), nil
	}
	gen := c.generation()
	names, err := c.Store.ListIngredientNames(ctx)
	if err != nil {
		return nil, err
	}
	c.store(gen, cacheKeyIngredients, names)
	return names, nil
}

func (c *CachedStore) ListRecipes(ctx context.Context) ([]*Recipe, error) {
	if v, ok := c.lookup(cacheKeyRecipes); ok {
		return v.([]*Recipe), nil
	}
	gen := c.generation()
	recipes, err := c.Store.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	c.store(gen, cacheKeyRecipes, recipes)
	return recipes, nil
}

func (c *CachedStore) SetLastRecommended(ctx context.Context, recipeName string, ts int64) error {
	defer c.invalidate(cacheKeyRecipes)
	return c.Store.SetLastRecommended(ctx, recipeName, ts)
}

func (c *CachedStore) LoadSeed(ctx context.Context, seed *Seed) (bool, error) {
	created, err := c.Store.LoadSeed(ctx, seed)
	if created {
		c.invalidate()
	}
	return created, err
}

func (c *CachedStore) Reset(ctx context.Context) error {
	defer c.invalidate()
	return c.Store.Reset(ctx)
}

func (c *CachedStore) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// store caches value under key unless a write completed after gen was read.
func (c *CachedStore) store(gen uint64, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.cache.Add(key, value)
}

// invalidate must run after the write it follows has completed. With no keys
// the whole cache is dropped.
func (c *CachedStore) invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if len(keys) == 0 {
		c.cache.Purge()
		return
	}
	for _, k := range keys {
		c.cache.Remove(k)
	}
}

func (c *CachedStore) lookup(key string) (any, bool) {
	v, ok := c.cache.Get(key)
	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.CacheLookups.WithLabelValues(key, result).Inc()
	return v, ok
}
