// Package domain implements the Domain Classifier (C9): a keyword-driven
// registry that assigns an incoming query or knowledge document to zero
// or more of a fixed set of domains. The map-based registry shape is
// modeled on the teacher's internal/schemas registry pattern (a static
// map of name -> definition consulted by lookup), adapted here from MCP
// tool schema presets to domain keyword sets.
package domain

import (
	"sort"
	"strings"
	"unicode"

	"github.com/relaykit/orchestrate/internal/model"
)

// Registry holds the keyword sets for each known domain.
type Registry struct {
	domains map[string][]string
}

// NewRegistry builds a Registry seeded with a starter set of domains.
// Callers extend it with Register for deployment-specific domains.
func NewRegistry() *Registry {
	r := &Registry{domains: make(map[string][]string)}
	r.Register("devops", []string{"deploy", "kubernetes", "docker", "ci", "pipeline", "terraform"})
	r.Register("data", []string{"etl", "pipeline", "warehouse", "sql", "dataset", "transform"})
	r.Register("support", []string{"ticket", "customer", "incident", "escalation", "sla"})
	r.Register("finance", []string{"invoice", "payment", "ledger", "reconciliation", "billing"})
	return r
}

// Register adds or replaces the keyword set for a domain name.
func (r *Registry) Register(name string, keywords []string) {
	r.domains[name] = keywords
}

// Classify scores text against every registered domain's keyword set and
// returns the matching domain names as an ordered set, ranked by match
// count and then by the length of the longest matched keyword
// (length-weighted specificity) — spec.md §4.9. Keywords match whole
// words (or whole word sequences), so a short keyword such as "ci" does
// not match inside "reconciliation". A text matching no domain's
// keywords returns an empty slice; callers treat that as "search all
// collections" rather than a silent fallback domain.
func (r *Registry) Classify(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	padded := " " + strings.Join(words, " ") + " "

	type match struct {
		name        string
		score       int
		specificity int
	}

	names := make([]string, 0, len(r.domains))
	for name := range r.domains {
		names = append(names, name)
	}
	sort.Strings(names)

	var matches []match
	for _, name := range names {
		score, specificity := 0, 0
		for _, kw := range r.domains[name] {
			if strings.Contains(padded, " "+strings.ToLower(kw)+" ") {
				score++
				if len(kw) > specificity {
					specificity = len(kw)
				}
			}
		}
		if score > 0 {
			matches = append(matches, match{name, score, specificity})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].specificity > matches[j].specificity
	})

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

// ClassifyOne collapses Classify's ordered set to the single domain an
// ingest should tag a document with: the one unambiguous match, or
// model.CommonDomain when classification finds nothing or more than one
// candidate (spec.md §4.8 ingest contract, "ambiguous → common only").
func (r *Registry) ClassifyOne(text string) string {
	matches := r.Classify(text)
	if len(matches) != 1 {
		return model.CommonDomain
	}
	return matches[0]
}

// Domains returns every target collection a document classified into
// `primary` should be filed under: its primary domain plus the shared
// common collection (spec.md §4.8 "insert into {detected_domain}
// collection plus common").
func Domains(primary string) []string {
	if primary == model.CommonDomain {
		return []string{model.CommonDomain}
	}
	return []string{primary, model.CommonDomain}
}
