package utils

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalDNSName returns a DNS name lowercased, trimmed of whitespace and
// without trailing dots, so that "WWW.Example.com." and "www.example.com"
// compare equal.
func CanonicalDNSName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimRight(name, ".")
}

// GetApexDomain returns the registrable domain (eTLD+1) of name.
// Names without one (single labels, public suffixes) are returned canonicalized.
func GetApexDomain(name string) string {
	name = CanonicalDNSName(name)
	apex, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return name
	}
	return apex
}

// Suffixes lists name and each of its parents, ending at the apex domain.
//
//	Suffixes("a.b.example.com.") == ["a.b.example.com", "b.example.com", "example.com"]
func Suffixes(name string) []string {
	name = CanonicalDNSName(name)
	if name == "" {
		return nil
	}
	apex := GetApexDomain(name)
	if !strings.HasSuffix(name, apex) {
		return []string{name}
	}

	out := []string{name}
	for name != apex {
		i := strings.IndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[i+1:]
		out = append(out, name)
	}
	return out
}
