package ignorelist

import "github.com/haukened/pbdns-relay/internal/dns/domain"

// BloomFactory builds Bloom filters sized for capacity n at false-positive rate p.
type BloomFactory interface {
	New(n uint64, p float64) BloomFilter
}

// BloomFilter is the minimal interface the list needs from Bloom filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// DecisionCache caches decisions by canonical name with basic metrics.
type DecisionCache interface {
	Get(name string) (domain.IgnoreDecision, bool)
	Put(name string, d domain.IgnoreDecision)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}
