package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateExpression_RejectsSyntaxError(t *testing.T) {
	err := ValidateExpression("x ===")
	assert.Error(t, err)
}

func TestValidateExpression_AcceptsWellFormedExpression(t *testing.T) {
	err := ValidateExpression("x > 1 and y < 2")
	assert.NoError(t, err)
}

func TestEvaluateCondition_ReturnsBooleanResult(t *testing.T) {
	ok, err := EvaluateCondition("count > 5", map[string]any{"count": 10})
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateCondition_NonBooleanResultIsAnError(t *testing.T) {
	_, err := EvaluateCondition("count + 1", map[string]any{"count": 10})
	assert.Error(t, err)
}

func TestEvaluateTransform_BuildsNewStructure(t *testing.T) {
	result, err := EvaluateTransform(`{"total": a + b}`, map[string]any{"a": 2, "b": 3})
	assert.NoError(t, err)
	m := result.(map[string]any)
	assert.EqualValues(t, 5, m["total"])
}
