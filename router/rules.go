// Package router classifies normalized queries and dispatches retrieval
// to the selected source adapters. Classification is rule-ordered and
// deterministic: the same normalized text always yields the same intent
// and adapter set.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aerodesk-ai/aerodesk/types"
)

// RuleFamily is one ordered group of patterns and keywords that maps a
// query to a single source. Families are evaluated in registration
// order; the order is fixed so routing stays deterministic.
type RuleFamily struct {
	Intent   types.IntentLabel
	Source   types.SourceType
	patterns []*regexp.Regexp
	keywords *regexp.Regexp
}

// NewRuleFamily builds a family from regex patterns and keyword phrases.
// Keywords match case-insensitively on whole words.
func NewRuleFamily(intent types.IntentLabel, source types.SourceType, patterns []string, keywords []string) (*RuleFamily, error) {
	f := &RuleFamily{Intent: intent, Source: source}

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}

	if len(keywords) > 0 {
		quoted := make([]string, 0, len(keywords))
		for _, k := range keywords {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("failed to compile keyword set: %w", err)
		}
		f.keywords = re
	}

	return f, nil
}

// Matches reports whether the family applies to the query text.
func (f *RuleFamily) Matches(text string) bool {
	for _, re := range f.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	if f.keywords != nil && f.keywords.MatchString(text) {
		return true
	}
	return false
}

// flightNumberPattern matches airline flight designators such as
// "PK-305", "PK 305", or "EK612".
const flightNumberPattern = `(?i)\b[A-Z]{2,3}[- ]?\d{2,4}\b`

// DefaultFamilies returns the built-in rule families in evaluation
// order: flight status first, then policy documents, then web notices.
func DefaultFamilies() []*RuleFamily {
	flight, err := NewRuleFamily(
		types.IntentFlightStatus,
		types.SourceFlight,
		[]string{flightNumberPattern},
		[]string{
			"flight", "flights", "departure", "departures", "arrival",
			"arrivals", "delayed", "delay", "on time", "cancelled",
			"gate", "boarding", "flight status",
		},
	)
	if err != nil {
		panic(err)
	}

	policy, err := NewRuleFamily(
		types.IntentPolicy,
		types.SourcePolicy,
		nil,
		[]string{
			"policy", "policies", "baggage", "baggage limit", "regulation",
			"regulations", "rule", "rules", "allowance", "prohibited",
			"fee", "fees", "procedure", "procedures", "requirement",
			"requirements", "document",
		},
	)
	if err != nil {
		panic(err)
	}

	web, err := NewRuleFamily(
		types.IntentWebNotice,
		types.SourceWeb,
		nil,
		[]string{
			"notice", "notices", "announcement", "announcements",
			"advisory", "advisories", "news", "press release", "alert",
			"alerts", "tender", "tenders", "career", "careers",
		},
	)
	if err != nil {
		panic(err)
	}

	return []*RuleFamily{flight, policy, web}
}
