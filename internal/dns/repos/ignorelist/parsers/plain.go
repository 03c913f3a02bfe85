// Package parsers reads ignore rules from configuration values and files.
package parsers

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	logpkg "github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/common/utils"
	"github.com/haukened/pbdns-relay/internal/dns/domain"
)

// ParseEntries parses configured ignore entries with the same rules as
// ParsePlainList.
func ParseEntries(entries []string, source string, logger logpkg.Logger) ([]domain.IgnoreRule, error) {
	return ParsePlainList(strings.NewReader(strings.Join(entries, "\n")), source, logger)
}

// ParsePlainList parses a newline-delimited list of domains into rules.
// Default is exact; a leading "*." or "." makes the rule a suffix rule that
// also matches the name itself.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - Trims surrounding whitespace and removes trailing dots via CanonicalDNSName
// - Skips empty lines and names that are not valid FQDNs
// - De-duplicates by canonical name and kind while preserving first-seen order
func ParsePlainList(r io.Reader, source string, logger logpkg.Logger) ([]domain.IgnoreRule, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	var out []domain.IgnoreRule
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimPrefix(scanner.Text(), "\uFEFF")

		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}

		kind := ruleKindFromRaw(s)
		name := normalizeDomainName(s)
		if !isValidFQDN(name) {
			logger.Warn(map[string]any{"source": source, "line": lineNum, "raw": s}, "skipping invalid ignore entry")
			continue
		}

		seenKey := name + "|" + kind.String()
		if _, ok := seen[seenKey]; ok {
			continue
		}
		rule, err := domain.NewIgnoreRule(name, kind, source)
		if err != nil {
			logger.Warn(map[string]any{"source": source, "line": lineNum, "error": err}, "skipping invalid ignore entry")
			continue
		}
		out = append(out, rule)
		seen[seenKey] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "ignore rules parsed")
	return out, nil
}

// ruleKindFromRaw returns IgnoreSuffix if the name begins with "*." or ".".
func ruleKindFromRaw(raw string) domain.IgnoreRuleKind {
	if strings.HasPrefix(raw, "*.") || strings.HasPrefix(raw, ".") {
		return domain.IgnoreSuffix
	}
	return domain.IgnoreExact
}

// normalizeDomainName strips a suffix marker and canonicalizes the name.
func normalizeDomainName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "*.")
	name = strings.TrimPrefix(name, ".")
	return utils.CanonicalDNSName(name)
}

// isValidFQDN requires at least two labels of 1..63 bytes, at most 255 bytes
// in total, and a first label starting with a letter or digit.
func isValidFQDN(name string) bool {
	if len(name) > 255 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) > 63 || len(label) == 0 {
			return false
		}
	}
	first := []rune(labels[0])[0]
	return unicode.IsLetter(first) || unicode.IsDigit(first) || first == '_'
}
