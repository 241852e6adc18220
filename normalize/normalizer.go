// Package normalize canonicalizes entity mentions in query text.
// Synonymous aliases ("PAA", "Pakistan Airport Authority") are rewritten
// to one canonical form before retrieval so that all downstream matching
// operates on a single token per entity.
package normalize

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Rule maps a set of alias phrases to one canonical form.
type Rule struct {
	Canonical string   `yaml:"canonical"`
	Aliases   []string `yaml:"aliases"`
}

// aliasPattern is one compiled alias replacement.
type aliasPattern struct {
	re        *regexp.Regexp
	canonical string
}

// Normalizer rewrites alias phrases to canonical entity forms.
// Matching is case-insensitive and whole-phrase only; text without a
// configured alias passes through unchanged. Normalization is idempotent.
type Normalizer struct {
	patterns []aliasPattern
	logger   *zap.Logger
}

// New creates a Normalizer from the given rules.
func New(rules []Rule, logger *zap.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	type pair struct {
		alias     string
		canonical string
	}
	var pairs []pair
	for _, r := range rules {
		if r.Canonical == "" {
			return nil, fmt.Errorf("normalization rule has empty canonical form")
		}
		for _, a := range r.Aliases {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			// An alias equal to its canonical form is a no-op; skip it
			// so replacement stays idempotent.
			if strings.EqualFold(a, r.Canonical) {
				continue
			}
			pairs = append(pairs, pair{alias: a, canonical: r.Canonical})
		}
	}

	// Longer aliases take precedence so a phrase is never partially
	// rewritten by one of its shorter sub-aliases.
	sort.SliceStable(pairs, func(i, j int) bool {
		return len(pairs[i].alias) > len(pairs[j].alias)
	})

	n := &Normalizer{
		patterns: make([]aliasPattern, 0, len(pairs)),
		logger:   logger.With(zap.String("component", "normalizer")),
	}
	for _, p := range pairs {
		expr := `(?i)\b` + regexp.QuoteMeta(p.alias) + `\b`
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile alias pattern %q: %w", p.alias, err)
		}
		n.patterns = append(n.patterns, aliasPattern{re: re, canonical: p.canonical})
	}

	return n, nil
}

// Normalize rewrites all configured aliases in text to their canonical
// forms. Unmatched text is returned unchanged.
func (n *Normalizer) Normalize(text string) string {
	out := text
	for _, p := range n.patterns {
		out = p.re.ReplaceAllString(out, p.canonical)
	}
	if out != text {
		n.logger.Debug("normalized query entities",
			zap.String("before", text),
			zap.String("after", out))
	}
	return out
}

// DefaultRules returns the built-in alias table for the airport domain.
func DefaultRules() []Rule {
	return []Rule{
		{
			Canonical: "Pakistan Airports Authority",
			Aliases: []string{
				"PAA",
				"Pakistan Airport Authority",
				"the airports authority",
			},
		},
		{
			Canonical: "Pakistan International Airlines",
			Aliases: []string{
				"PIA",
				"Pakistan Intl Airlines",
			},
		},
		{
			Canonical: "Jinnah International Airport",
			Aliases: []string{
				"KHI airport",
				"Karachi airport",
			},
		},
		{
			Canonical: "Islamabad International Airport",
			Aliases: []string{
				"ISB airport",
				"Islamabad airport",
			},
		},
	}
}

// LoadRules reads an alias table from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse alias file: %w", err)
	}
	return rules, nil
}
