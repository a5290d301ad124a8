package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_SubstitutesKnownNames(t *testing.T) {
	vars := map[string]any{"name": "world", "count": 3, "active": true}
	got := Format("hello { name }, count={count}, active={active}", vars)
	assert.Equal(t, "hello world, count=3, active=true", got)
}

func TestFormat_LeavesUnresolvedNamesLiteral(t *testing.T) {
	got := Format("value is {missing}", map[string]any{})
	assert.Equal(t, "value is {missing}", got)
}

func TestStringify_StructuredValue(t *testing.T) {
	got := Stringify(map[string]any{"a": 1})
	assert.JSONEq(t, `{"a":1}`, got)
}

func TestFormatValue_RecursesThroughMapsAndSlices(t *testing.T) {
	vars := map[string]any{"x": "1", "y": "2"}
	input := map[string]any{
		"a": "{x}",
		"b": []any{"{y}", "literal"},
	}
	out := FormatValue(input, vars).(map[string]any)
	assert.Equal(t, "1", out["a"])
	assert.Equal(t, []any{"2", "literal"}, out["b"])
}

func TestExtractNames_DedupesInFirstSeenOrder(t *testing.T) {
	names := ExtractNames("{a} then {b} then {a} again")
	assert.Equal(t, []string{"a", "b"}, names)
}
