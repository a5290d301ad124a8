package model

// StepOutput is the invariant shape every step type returns under `output`,
// so that output_mapping can address any field uniformly (spec.md §6).
type StepOutput struct {
	Data       any            `json:"data,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
	Headers    map[string]any `json:"headers,omitempty"`
	Status     string         `json:"status,omitempty"`
	Error      string         `json:"error,omitempty"`
	Extra      map[string]any `json:"-"`
}

// StepResult is the uniform return value of the Step Dispatcher (C5),
// independent of step type (spec.md §6 "Step output shape").
type StepResult struct {
	Success         bool           `json:"success"`
	Output          map[string]any `json:"output,omitempty"`
	Error           string         `json:"error,omitempty"`
	Logs            []string       `json:"logs,omitempty"`
	WaitingApproval bool           `json:"-"`
}

// Ok builds a successful StepResult with the given output payload flattened
// under "output".
func Ok(output map[string]any) StepResult {
	return StepResult{Success: true, Output: output}
}

// Fail builds a failed StepResult carrying a human-readable error.
func Fail(errMsg string, output map[string]any) StepResult {
	return StepResult{Success: false, Error: errMsg, Output: output}
}
