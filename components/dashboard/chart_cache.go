package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// RenderCache memoizes rendered chart HTML so repeated fetches are cheap.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// ttlCache is a keyed cache whose entries expire after a fixed TTL.
// A non-positive TTL disables caching.
type ttlCache[V any] struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]ttlEntry[V]),
	}
}

func (c *ttlCache[V]) getOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.set(key, v)
	return v, nil
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	var zero V
	if c == nil || c.ttl <= 0 {
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) set(key string, v V) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = ttlEntry[V]{value: v, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// invalidate drops every entry whose key starts with prefix.
func (c *ttlCache[V]) invalidate(prefix string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

func (c *ttlCache[V]) len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ChartCache is an in-memory TTL cache for rendered charts.
type ChartCache struct {
	cache *ttlCache[string]
}

// NewChartCache builds a cache with the provided TTL.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{cache: newTTLCache[string](ttl)}
}

// GetOrRender returns a cached entry or renders/stores a new one.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	return c.cache.getOrLoad(key, render)
}

// Invalidate removes cached charts for keys with the given prefix.
func (c *ChartCache) Invalidate(prefix string) int {
	return c.cache.invalidate(prefix)
}

// DatasetCache memoizes generated demo datasets per widget instance so a
// layout refresh does not reshuffle the numbers on screen.
type DatasetCache struct {
	cache *ttlCache[any]
}

// NewDatasetCache builds a dataset cache with the provided TTL.
func NewDatasetCache(ttl time.Duration) *DatasetCache {
	return &DatasetCache{cache: newTTLCache[any](ttl)}
}

// Invalidate drops datasets for one widget instance.
func (c *DatasetCache) Invalidate(instanceID string) int {
	if c == nil {
		return 0
	}
	return c.cache.invalidate(instanceID + ":")
}

// Len reports how many datasets are cached.
func (c *DatasetCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.len()
}

// CachedDataset returns the dataset stored under instanceID/kind or builds it.
func CachedDataset[T any](c *DatasetCache, instanceID, kind string, build func() T) T {
	if c == nil || instanceID == "" {
		return build()
	}
	v, _ := c.cache.getOrLoad(instanceID+":"+kind, func() (any, error) {
		return build(), nil
	})
	if typed, ok := v.(T); ok {
		return typed
	}
	fresh := build()
	c.cache.set(instanceID+":"+kind, fresh)
	return fresh
}

// configHash returns a deterministic hash for the widget configuration.
func configHash(cfg map[string]any) string {
	if len(cfg) == 0 {
		return "empty"
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
