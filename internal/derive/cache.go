package derive

import (
	"encoding/json"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 256

// Cache memoizes derived view models by a fingerprint of their inputs.
// Entries are evicted least recently used first.
type Cache struct {
	entries *lru.Cache[uint64, any]
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	entries, _ := lru.New[uint64, any](size)
	return &Cache{entries: entries}
}

// Stats reports lookups served from the cache and computed afresh.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) Purge() { c.entries.Purge() }

// Fingerprint hashes name and the JSON form of inputs.
func Fingerprint(name string, inputs ...any) (uint64, error) {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	enc := json.NewEncoder(d)
	for _, in := range inputs {
		if err := enc.Encode(in); err != nil {
			return 0, err
		}
	}
	return d.Sum64(), nil
}

// Memoize returns the cached result of fn for (name, inputs), computing and
// storing it on a miss. A nil cache or unhashable inputs always compute.
func Memoize[T any](c *Cache, name string, fn func() T, inputs ...any) T {
	if c == nil {
		return fn()
	}
	key, err := Fingerprint(name, inputs...)
	if err != nil {
		return fn()
	}
	if v, ok := c.entries.Get(key); ok {
		if typed, ok := v.(T); ok {
			c.hits.Add(1)
			return typed
		}
	}
	c.misses.Add(1)
	v := fn()
	c.entries.Add(key, v)
	return v
}
