// Package ignorelist decides whether a query name is on the operator's
// ignore list, so that health checks and other internal noise are not
// forwarded. Rules are held in memory; a Bloom filter rejects most names
// before the exact and suffix sets are consulted, and decisions for
// repeated names are cached.
package ignorelist

import (
	"strings"

	"github.com/haukened/pbdns-relay/internal/dns/common/utils"
	"github.com/haukened/pbdns-relay/internal/dns/domain"
)

// DefaultFPRate is the Bloom filter false-positive target.
const DefaultFPRate = 0.01

// List is an immutable set of ignore rules. It is safe for concurrent use
// as long as the DecisionCache is.
type List struct {
	exact  map[string]domain.IgnoreRule
	suffix map[string]domain.IgnoreRule
	bloom  BloomFilter
	cache  DecisionCache
}

// New builds a List from rules. Duplicate rules collapse to one.
func New(rules []domain.IgnoreRule, factory BloomFactory, cache DecisionCache, fpRate float64) *List {
	l := &List{
		exact:  make(map[string]domain.IgnoreRule),
		suffix: make(map[string]domain.IgnoreRule),
		cache:  cache,
	}
	for _, r := range rules {
		name := utils.CanonicalDNSName(r.Name)
		if name == "" {
			continue
		}
		if r.Kind == domain.IgnoreSuffix {
			l.suffix[name] = r
		} else {
			l.exact[name] = r
		}
	}

	l.bloom = factory.New(uint64(l.Len()), fpRate)
	for name := range l.exact {
		l.bloom.Add([]byte(name))
	}
	for name := range l.suffix {
		l.bloom.Add([]byte(reverseString(name)))
	}
	return l
}

// Ignored reports whether messages for qname should be dropped.
// A nil List ignores nothing.
func (l *List) Ignored(qname string) bool {
	if l == nil {
		return false
	}
	return l.Decide(qname).Ignored
}

// Decide evaluates qname against the rules.
func (l *List) Decide(qname string) domain.IgnoreDecision {
	cn := utils.CanonicalDNSName(qname)
	if cn == "" || l.Len() == 0 {
		return domain.IgnoreDecision{}
	}
	// 1) checkBloom: early-allow if definitively negative
	if !l.checkBloom(cn) {
		return domain.IgnoreDecision{}
	}
	// 2) checkCache
	if d, ok := l.cache.Get(cn); ok {
		return d
	}
	// 3) checkRules
	dec := l.checkRules(cn)
	l.cache.Put(cn, dec)
	return dec
}

// Len returns the number of distinct rules.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.exact) + len(l.suffix)
}

// Stats returns rule and cache counters.
func (l *List) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	hits, misses, evictions := l.cache.Stats()
	return Stats{
		Rules:     l.Len(),
		CacheSize: l.cache.Len(),
		Hits:      hits,
		Misses:    misses,
		Evictions: evictions,
	}
}

// checkBloom returns true if the rule sets must be consulted.
func (l *List) checkBloom(cn string) bool {
	if l.bloom.MightContain([]byte(cn)) {
		return true
	}
	for _, s := range utils.Suffixes(cn) {
		if l.bloom.MightContain([]byte(reverseString(s))) {
			return true
		}
	}
	return false
}

// checkRules matches exact rules first, then suffix rules from the most
// specific parent to the registrable domain.
func (l *List) checkRules(cn string) domain.IgnoreDecision {
	if r, ok := l.exact[cn]; ok {
		return domain.IgnoreDecision{Ignored: true, MatchedRule: r.Name, Kind: domain.IgnoreExact}
	}
	for _, s := range utils.Suffixes(cn) {
		if r, ok := l.suffix[s]; ok {
			return domain.IgnoreDecision{Ignored: true, MatchedRule: r.Name, Kind: domain.IgnoreSuffix}
		}
	}
	return domain.IgnoreDecision{}
}

// reverseString keys suffix rules apart from exact rules in the shared
// Bloom filter.
func reverseString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	r := []rune(s)
	for i := len(r) - 1; i >= 0; i-- {
		b.WriteRune(r[i])
	}
	return b.String()
}
