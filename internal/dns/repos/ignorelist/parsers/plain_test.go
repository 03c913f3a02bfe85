package parsers

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/domain"
)

func TestParsePlainList(t *testing.T) {
	input := strings.Join([]string{
		"\uFEFFhealth.example.com",
		"# whole line comment",
		"",
		"*.corp.example   # inline comment",
		".Lab.Example.",
		"health.example.com.",
		"localhost",
		"bad..name",
		"-dash.example",
		"_dmarc.example.org",
	}, "\n")

	rules, err := ParsePlainList(strings.NewReader(input), "ignore.txt", log.NewNoopLogger())
	require.NoError(t, err)

	assert.Equal(t, []domain.IgnoreRule{
		{Name: "health.example.com", Kind: domain.IgnoreExact, Source: "ignore.txt"},
		{Name: "corp.example", Kind: domain.IgnoreSuffix, Source: "ignore.txt"},
		{Name: "lab.example", Kind: domain.IgnoreSuffix, Source: "ignore.txt"},
		{Name: "_dmarc.example.org", Kind: domain.IgnoreExact, Source: "ignore.txt"},
	}, rules)
}

func TestParseEntries(t *testing.T) {
	rules, err := ParseEntries([]string{"a.example", "*.b.example", "a.example"}, "config", log.NewNoopLogger())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, domain.IgnoreSuffix, rules[1].Kind)

	rules, err = ParseEntries(nil, "config", log.NewNoopLogger())
	require.NoError(t, err)
	assert.Empty(t, rules)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParsePlainList_ScannerError(t *testing.T) {
	_, err := ParsePlainList(errReader{}, "ignore.txt", log.NewNoopLogger())
	assert.ErrorContains(t, err, "disk gone")
}

func TestIsValidFQDN(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"example.com", true},
		{"a.b.c", true},
		{"1.example", true},
		{"com", false},
		{"", false},
		{"a..b", false},
		{strings.Repeat("a", 64) + ".com", false},
		{strings.Repeat("a.", 128) + "com", false},
		{"*x.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidFQDN(tt.name))
		})
	}
}
