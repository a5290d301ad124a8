// Package formatter implements the Variable Formatter (C2): substitution
// of "{name}" placeholders inside API-call configs and notification texts.
// It mirrors the teacher's regex-driven variable extraction in
// internal/template/engine.go, but targets the single-brace grammar this
// engine's step configs actually use instead of Go's "{{.Var}}" templates.
package formatter

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// namePattern matches `{name}` with optional interior whitespace tolerated,
// per spec.md §4.2.
var namePattern = regexp.MustCompile(`\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}`)

// Format replaces every `{name}` occurrence in template with the
// canonical stringification of V[name]. Names absent from V are left
// literal and logged, never causing an error.
func Format(template string, vars map[string]any) string {
	return namePattern.ReplaceAllStringFunc(template, func(match string) string {
		name := namePattern.FindStringSubmatch(match)[1]
		val, ok := vars[name]
		if !ok {
			slog.Warn("variable formatter: unresolved placeholder", "name", name)
			return match
		}
		return Stringify(val)
	})
}

// Stringify produces the canonical string form of a JSON-representable
// value: numbers as decimal, booleans as true/false, structured values as
// compact JSON, strings passed through unchanged.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// FormatValue applies Format recursively: strings are substituted in
// place, map values and list elements are walked, everything else passes
// through unchanged. This is how request `body` and `query_params`
// objects get formatted before serialization (spec.md §4.2 "Applies
// recursively").
func FormatValue(v any, vars map[string]any) any {
	switch t := v.(type) {
	case string:
		return Format(t, vars)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = FormatValue(val, vars)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = FormatValue(val, vars)
		}
		return out
	default:
		return v
	}
}

// Normalize trims interior whitespace from a raw `{ name }` capture so
// lookups are whitespace-tolerant; exported for callers that extract names
// without going through Format (e.g. static analysis / validators).
func Normalize(raw string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "{}"))
}

// ExtractNames returns the set of variable names referenced by a template
// string, deduplicated and in first-seen order.
func ExtractNames(template string) []string {
	matches := namePattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
