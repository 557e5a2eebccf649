package extras

import lru "github.com/hashicorp/golang-lru/v2"

// NegativeCache remembers payload hashes that failed to decode so reconciliation does not
// retry them. It is bounded; the least recently recorded hashes are forgotten first.
// Safe for concurrent use, so one cache may be shared by several reconcilers.
type NegativeCache struct {
	cache *lru.Cache[string, struct{}]
}

// NewNegativeCache creates a cache holding at most size hashes.
//
// Parameters:
//   - size: the capacity; values below 1 use 512
//
// Returns:
//   - *NegativeCache: the cache
func NewNegativeCache(size int) *NegativeCache {
	if size < 1 {
		size = 512
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		panic("extras: " + err.Error())
	}
	return &NegativeCache{cache: cache}
}

// Add records hash as known-bad.
func (c *NegativeCache) Add(hash string) {
	c.cache.Add(hash, struct{}{})
}

// Contains reports whether hash is known-bad.
func (c *NegativeCache) Contains(hash string) bool {
	return c.cache.Contains(hash)
}

// Remove forgets hash.
func (c *NegativeCache) Remove(hash string) {
	c.cache.Remove(hash)
}

// Purge forgets every hash.
func (c *NegativeCache) Purge() {
	c.cache.Purge()
}

// Len returns the number of remembered hashes.
func (c *NegativeCache) Len() int {
	return c.cache.Len()
}
