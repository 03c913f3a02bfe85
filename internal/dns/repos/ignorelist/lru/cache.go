// Package lru provides the ignore list's decision cache.
package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/pbdns-relay/internal/dns/domain"
	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist"
)

// decisionCache is an LRU-backed implementation of ignorelist.DecisionCache.
// It tracks hits, misses and evictions.
type decisionCache struct {
	lru       *lru.Cache[string, domain.IgnoreDecision]
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// disabledCache is a no-op DecisionCache used when size <= 0.
type disabledCache struct{}

// New creates a DecisionCache with the given capacity. If size <= 0, a
// disabled cache is returned that always misses and tracks no metrics.
func New(size int) (ignorelist.DecisionCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	dc := &decisionCache{}
	// NewWithEvict observes evictions, including Purge-induced ones.
	cache, err := lru.NewWithEvict(size, func(string, domain.IgnoreDecision) {
		dc.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return dc, nil
}

// Get looks up a decision by name and counts the hit or miss.
func (c *decisionCache) Get(name string) (domain.IgnoreDecision, bool) {
	if val, ok := c.lru.Get(name); ok {
		c.hits.Add(1)
		return val, true
	}
	c.misses.Add(1)
	return domain.IgnoreDecision{}, false
}

// Put stores a decision by name.
func (c *decisionCache) Put(name string, d domain.IgnoreDecision) {
	c.lru.Add(name, d)
}

// Len returns the number of entries in the cache.
func (c *decisionCache) Len() int { return c.lru.Len() }

// Purge clears all entries. Evictions are counted via the eviction callback.
func (c *decisionCache) Purge() { c.lru.Purge() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *decisionCache) Stats() (hits, misses, evictions uint64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

func (d *disabledCache) Get(string) (domain.IgnoreDecision, bool) {
	return domain.IgnoreDecision{}, false
}

func (d *disabledCache) Put(string, domain.IgnoreDecision) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ ignorelist.DecisionCache = (*decisionCache)(nil)
var _ ignorelist.DecisionCache = (*disabledCache)(nil)
