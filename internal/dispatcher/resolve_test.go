package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveInput_WalksNestedVariables(t *testing.T) {
	variables := map[string]any{"user": map[string]any{"id": "u1"}}
	mapping := map[string]string{
		"userID": "user.id",
	}
	input := ResolveInput(mapping, variables)
	assert.Equal(t, "u1", input["userID"])
}

func TestResolveInput_FlatNameLookup(t *testing.T) {
	variables := map[string]any{"total": 42}
	input := ResolveInput(map[string]string{"total": "total"}, variables)
	assert.Equal(t, 42, input["total"])
}

func TestResolveInput_SkipsUnresolvablePaths(t *testing.T) {
	input := ResolveInput(map[string]string{"x": "missing"}, map[string]any{})
	_, ok := input["x"]
	assert.False(t, ok)
}

func TestApplyOutputMapping_PromotesFieldsIntoVariables(t *testing.T) {
	vars := map[string]any{}
	ApplyOutputMapping(map[string]string{"total": "data.total"}, map[string]any{"data": map[string]any{"total": 7}}, vars)
	assert.Equal(t, 7, vars["total"])
}
