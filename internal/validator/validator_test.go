package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaykit/orchestrate/internal/model"
)

func wf(steps ...model.Step) *model.Workflow {
	return &model.Workflow{ID: "wf-1", Steps: steps}
}

func TestValidateWorkflow_RejectsDuplicateStepIDs(t *testing.T) {
	issues := ValidateWorkflow(wf(
		model.Step{ID: "s1", Type: model.StepCondition, Config: map[string]any{"expression": "True"}},
		model.Step{ID: "s1", Type: model.StepCondition, Config: map[string]any{"expression": "True"}},
	))
	assert.Condition(t, func() bool {
		for _, i := range issues {
			if i.Field == "id" && i.Fatal() {
				return true
			}
		}
		return false
	})
}

func TestValidateWorkflow_RejectsMalformedConditionExpression(t *testing.T) {
	issues := ValidateWorkflow(wf(
		model.Step{ID: "s1", Type: model.StepCondition, Config: map[string]any{"expression": "x ==="}},
	))
	assert.NotEmpty(t, issues)
	assert.True(t, issues[0].Fatal())
}

func TestValidateWorkflow_AcceptsValidConditionExpression(t *testing.T) {
	issues := ValidateWorkflow(wf(
		model.Step{ID: "s1", Type: model.StepCondition, Config: map[string]any{"expression": "x == 1"}},
	))
	assert.Empty(t, issues)
}

func TestValidateWorkflow_PythonScriptParseFailureIsFatal(t *testing.T) {
	issues := ValidateWorkflow(wf(
		model.Step{ID: "s1", Type: model.StepPythonScript, Code: `x = [1, 2, 3`},
	))
	assert.NotEmpty(t, issues)
	assert.True(t, issues[0].Fatal())
}

func TestValidateWorkflow_PythonScriptWarnsWhenMissingVariablesArgStdoutJSONAndErrorHandling(t *testing.T) {
	issues := ValidateWorkflow(wf(
		model.Step{ID: "s1", Type: model.StepPythonScript, Code: `print("hello")`},
	))
	assert.Len(t, issues, 3)
	for _, i := range issues {
		assert.Equal(t, SeverityWarning, i.Severity)
	}
}

func TestValidateWorkflow_PythonScriptFollowingFullProtocolHasNoIssues(t *testing.T) {
	code := `
import argparse, json

def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--variables-file")
    args = parser.parse_args()
    try:
        print(json.dumps({"ok": True}))
    except Exception as exc:
        print(str(exc))

main()
`
	issues := ValidateWorkflow(wf(
		model.Step{ID: "s1", Type: model.StepPythonScript, Code: code},
	))
	assert.Empty(t, issues)
}

func TestValidatePythonLexical_RejectsNestedFStringQuotes(t *testing.T) {
	err := validatePythonLexical(`x = f"{obj["k"]}"`)
	assert.Error(t, err)
}

func TestValidatePythonLexical_AcceptsWellFormedScript(t *testing.T) {
	err := validatePythonLexical(`x = f"{obj['k']}"
print(x)`)
	assert.NoError(t, err)
}

func TestValidatePythonLexical_RejectsUnbalancedBrackets(t *testing.T) {
	err := validatePythonLexical(`x = [1, 2, 3`)
	assert.Error(t, err)
}
