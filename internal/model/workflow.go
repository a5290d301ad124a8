// Package model holds the data model shared by every engine component:
// Workflow, Step, Execution, StepExecution, ExecutionState, and the
// knowledge-index records. Nothing in this package executes a workflow;
// it only defines the shapes other packages operate on.
package model

import "encoding/json"

// WorkflowStatus is the lifecycle status of a persisted Workflow.
type WorkflowStatus string

const (
	WorkflowDraft    WorkflowStatus = "draft"
	WorkflowActive   WorkflowStatus = "active"
	WorkflowArchived WorkflowStatus = "archived"
)

// StepType is the closed set of step variants the dispatcher understands.
// Adding a new type is a single-site change: this enum, the executor
// registered for it in the dispatcher, the config schema, and the
// validator.
type StepType string

const (
	StepLLMCall       StepType = "llm_call"
	StepAPICall       StepType = "api_call"
	StepPythonScript  StepType = "python_script"
	StepCondition     StepType = "condition"
	StepApproval      StepType = "approval"
	StepNotification  StepType = "notification"
	StepDataTransform StepType = "data_transform"
)

// Workflow is a persisted, versioned plan of Steps plus initial variables.
type Workflow struct {
	ID          string         `json:"id" yaml:"id"`
	Version     int            `json:"version" yaml:"version"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Folder      string         `json:"folder,omitempty" yaml:"folder,omitempty"`
	Status      WorkflowStatus `json:"status" yaml:"status"`
	Steps       []Step         `json:"steps" yaml:"steps"`
	Variables   map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	Metadata    WorkflowMeta   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// WorkflowMeta carries authoring-time metadata that doesn't affect execution.
type WorkflowMeta struct {
	PythonRequirements []string `json:"python_requirements,omitempty" yaml:"python_requirements,omitempty"`
}

// Step is one unit of work inside a Workflow. Order is dense but need not
// be contiguous; ties are broken by ID.
type Step struct {
	ID             string         `json:"id" yaml:"id"`
	WorkflowID     string         `json:"workflow_id" yaml:"workflow_id,omitempty"`
	Order          int            `json:"order" yaml:"order"`
	Name           string         `json:"name" yaml:"name"`
	Type           StepType       `json:"step_type" yaml:"step_type"`
	Config         map[string]any `json:"config" yaml:"config"`
	Code           string         `json:"code,omitempty" yaml:"code,omitempty"`
	InputMapping   map[string]string `json:"input_mapping,omitempty" yaml:"input_mapping,omitempty"`
	OutputMapping  map[string]string `json:"output_mapping,omitempty" yaml:"output_mapping,omitempty"`
	RetryConfig    *RetryConfig   `json:"retry_config,omitempty" yaml:"retry_config,omitempty"`
	Condition      string         `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// RetryConfig governs per-step retry inside the engine's node body (§4.6.3).
type RetryConfig struct {
	MaxRetries        int `json:"max_retries" yaml:"max_retries"`
	RetryDelaySeconds int `json:"retry_delay_seconds" yaml:"retry_delay_seconds"`
}

// SortSteps orders steps by Order, breaking ties by ID, per spec.md §3.
func SortSteps(steps []Step) []Step {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	for i := 1; i < len(sorted); i++ {
		j := i
		for j > 0 && stepLess(sorted[j], sorted[j-1]) {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			j--
		}
	}
	return sorted
}

func stepLess(a, b Step) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.ID < b.ID
}

// Marshal re-serializes a Workflow for persistence or transport.
func (w *Workflow) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
