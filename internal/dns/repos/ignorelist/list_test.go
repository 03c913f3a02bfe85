package ignorelist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/pbdns-relay/internal/dns/domain"
	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist"
	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist/bloom"
	"github.com/haukened/pbdns-relay/internal/dns/repos/ignorelist/lru"
)

func newList(t *testing.T, cacheSize int, rules ...domain.IgnoreRule) *ignorelist.List {
	t.Helper()
	cache, err := lru.New(cacheSize)
	require.NoError(t, err)
	return ignorelist.New(rules, bloom.NewFactory(), cache, ignorelist.DefaultFPRate)
}

func rule(name string, kind domain.IgnoreRuleKind) domain.IgnoreRule {
	return domain.IgnoreRule{Name: name, Kind: kind, Source: "test"}
}

func TestList_Decide(t *testing.T) {
	l := newList(t, 16,
		rule("health.example.com", domain.IgnoreExact),
		rule("corp.example.org", domain.IgnoreSuffix),
		rule("healthcheck.example.co.uk", domain.IgnoreSuffix),
	)

	tests := []struct {
		qname     string
		ignored   bool
		matched   string
		matchKind domain.IgnoreRuleKind
	}{
		{qname: "health.example.com.", ignored: true, matched: "health.example.com", matchKind: domain.IgnoreExact},
		{qname: "HEALTH.Example.COM", ignored: true, matched: "health.example.com", matchKind: domain.IgnoreExact},
		{qname: "x.health.example.com.", ignored: false},
		{qname: "example.com.", ignored: false},
		{qname: "corp.example.org.", ignored: true, matched: "corp.example.org", matchKind: domain.IgnoreSuffix},
		{qname: "a.b.corp.example.org.", ignored: true, matched: "corp.example.org", matchKind: domain.IgnoreSuffix},
		{qname: "notcorp.example.org.", ignored: false},
		{qname: "x.healthcheck.example.co.uk.", ignored: true, matched: "healthcheck.example.co.uk", matchKind: domain.IgnoreSuffix},
		{qname: "", ignored: false},
	}

	for _, tt := range tests {
		t.Run(tt.qname, func(t *testing.T) {
			d := l.Decide(tt.qname)
			assert.Equal(t, tt.ignored, d.Ignored)
			assert.Equal(t, tt.ignored, l.Ignored(tt.qname))
			if tt.ignored {
				assert.Equal(t, tt.matched, d.MatchedRule)
				assert.Equal(t, tt.matchKind, d.Kind)
			}
		})
	}
}

func TestList_CachesDecisions(t *testing.T) {
	l := newList(t, 16, rule("health.example.com", domain.IgnoreExact))

	assert.True(t, l.Ignored("health.example.com."))
	assert.True(t, l.Ignored("health.example.com."))

	stats := l.Stats()
	assert.Equal(t, 1, stats.Rules)
	assert.Equal(t, 1, stats.CacheSize)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestList_CacheDisabled(t *testing.T) {
	l := newList(t, 0, rule("corp.example", domain.IgnoreSuffix))
	assert.True(t, l.Ignored("db.corp.example."))
	assert.True(t, l.Ignored("db.corp.example."))
	assert.Zero(t, l.Stats().CacheSize)
}

func TestList_DuplicatesCollapse(t *testing.T) {
	l := newList(t, 4,
		rule("a.example", domain.IgnoreExact),
		rule("A.Example.", domain.IgnoreExact),
		rule("a.example", domain.IgnoreSuffix),
		rule("", domain.IgnoreExact),
	)
	assert.Equal(t, 2, l.Len())
}

func TestList_EmptyAndNil(t *testing.T) {
	l := newList(t, 4)
	assert.False(t, l.Ignored("anything.example."))
	assert.Zero(t, l.Len())

	var nilList *ignorelist.List
	assert.False(t, nilList.Ignored("anything.example."))
	assert.Zero(t, nilList.Len())
	assert.Equal(t, ignorelist.Stats{}, nilList.Stats())
}
