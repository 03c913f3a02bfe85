package domain

import (
	"fmt"
	"strings"
)

// IgnoreRuleKind defines how an ignore rule matches query names.
//
// exact  - matches the name only
// suffix - matches the name and any subdomain of it
type IgnoreRuleKind uint8

const (
	// IgnoreExact matches only the exact name.
	IgnoreExact IgnoreRuleKind = iota
	// IgnoreSuffix matches the name and all its subdomains.
	IgnoreSuffix
)

// String returns a stable string representation of the rule kind.
func (k IgnoreRuleKind) String() string {
	switch k {
	case IgnoreExact:
		return "exact"
	case IgnoreSuffix:
		return "suffix"
	default:
		return fmt.Sprintf("IgnoreRuleKind(%d)", k)
	}
}

// IgnoreRule suppresses forwarding of messages whose query name it matches.
// Name is canonical: lowercase, no trailing dot.
type IgnoreRule struct {
	Name   string
	Kind   IgnoreRuleKind
	Source string // config key or file the rule came from
}

// NewIgnoreRule constructs an IgnoreRule and validates its fields.
func NewIgnoreRule(name string, kind IgnoreRuleKind, source string) (IgnoreRule, error) {
	r := IgnoreRule{
		Name:   strings.TrimSpace(name),
		Kind:   kind,
		Source: strings.TrimSpace(source),
	}
	if r.Name == "" {
		return IgnoreRule{}, fmt.Errorf("rule name must not be empty")
	}
	if r.Source == "" {
		return IgnoreRule{}, fmt.Errorf("rule source must not be empty")
	}
	switch r.Kind {
	case IgnoreExact, IgnoreSuffix:
	default:
		return IgnoreRule{}, fmt.Errorf("unsupported IgnoreRuleKind: %d", r.Kind)
	}
	return r, nil
}

// IgnoreDecision is the outcome of evaluating a query name against the ignore list.
type IgnoreDecision struct {
	Ignored     bool
	MatchedRule string
	Kind        IgnoreRuleKind
}
