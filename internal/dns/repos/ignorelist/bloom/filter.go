// Package bloom adapts bits-and-blooms Bloom filters to the ignore list.
package bloom

import (
	"sync"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist"
)

// factory implements ignorelist.BloomFactory.
type factory struct{}

// NewFactory returns a BloomFactory that sizes filters from capacity and FP rate.
func NewFactory() ignorelist.BloomFactory { return factory{} }

// New constructs a filter sized for capacity entries at the target
// false-positive rate.
func (factory) New(capacity uint64, fpRate float64) ignorelist.BloomFilter {
	m, k := size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}

// filter serializes writes; reads are lock-free once the list is built.
type filter struct {
	mu sync.Mutex
	bf *bitsbloom.BloomFilter
}

func (f *filter) Add(key []byte) {
	f.mu.Lock()
	f.bf.Add(key)
	f.mu.Unlock()
}

func (f *filter) MightContain(key []byte) bool {
	return f.bf.Test(key)
}
