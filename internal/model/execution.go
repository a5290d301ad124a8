package model

import "time"

// ExecutionStatus is the terminal-or-in-flight status of an Execution.
type ExecutionStatus string

const (
	ExecutionPending         ExecutionStatus = "pending"
	ExecutionRunning         ExecutionStatus = "running"
	ExecutionSuccess         ExecutionStatus = "success"
	ExecutionFailed          ExecutionStatus = "failed"
	ExecutionWaitingApproval ExecutionStatus = "waiting_approval"
	ExecutionCancelled       ExecutionStatus = "cancelled"
)

// StepStatus is the status of one StepExecution. It is monotone: once a
// step reaches a terminal status it never regresses (spec.md §3 invariant).
type StepStatus string

const (
	StepPending         StepStatus = "pending"
	StepRunning         StepStatus = "running"
	StepSuccess         StepStatus = "success"
	StepFailed          StepStatus = "failed"
	StepSkipped         StepStatus = "skipped"
	StepWaitingApproval StepStatus = "waiting_approval"
)

// terminal reports whether a StepStatus cannot transition further.
// waiting_approval is not terminal: an approval decision resolves it to
// success or failed (see CanTransition).
func (s StepStatus) terminal() bool {
	switch s {
	case StepSuccess, StepFailed, StepSkipped:
		return true
	}
	return false
}

// stepRank gives each status a position in the monotone pending -> running
// -> terminal chain, used to reject downgrades.
var stepRank = map[StepStatus]int{
	StepPending:         0,
	StepRunning:         1,
	StepSuccess:         2,
	StepFailed:          2,
	StepSkipped:         2,
	StepWaitingApproval: 2,
}

// CanTransition reports whether moving from `from` to `to` is a legal,
// non-regressing status transition.
func CanTransition(from, to StepStatus) bool {
	if from.terminal() {
		return false
	}
	if from == StepWaitingApproval {
		return to == StepSuccess || to == StepFailed
	}
	return stepRank[to] >= stepRank[from]
}

// Execution is one run of a Workflow.
type Execution struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"`
	Status          ExecutionStatus `json:"status"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	InputVariables  map[string]any  `json:"input_variables"`
	FinalVariables  map[string]any  `json:"final_variables,omitempty"`
	Error           string          `json:"error,omitempty"`
	ApprovalStepID  string          `json:"approval_step_id,omitempty"`
}

// StepExecution is one attempted step within an Execution.
type StepExecution struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	StepID      string         `json:"step_id"`
	Status      StepStatus     `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	Logs        []string       `json:"logs,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Attempts    int            `json:"attempts"`
}

// ErrorEntry records one step-level failure in insertion order; entries are
// never mutated once appended (spec.md §3 ExecutionState invariant).
type ErrorEntry struct {
	StepID    string    `json:"step_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionState is the in-memory working set the State Graph Engine (C6)
// drives while a single execution runs. It is owned exclusively by the
// execution task that created it; no other task may read or write it
// (spec.md §5 Shared-resource policy).
type ExecutionState struct {
	WorkflowID       string
	ExecutionID      string
	CurrentStepIndex int
	StepStatuses     map[string]StepStatus
	Variables        map[string]any
	StepOutputs      map[string]map[string]any
	Errors           []ErrorEntry
	ShouldStop       bool
	WaitingApproval  bool
	ApprovalStepID   string
	Logs             []string
}

// NewExecutionState builds a fresh ExecutionState for a workflow run.
func NewExecutionState(workflowID, executionID string, initialVariables map[string]any) *ExecutionState {
	vars := make(map[string]any, len(initialVariables))
	for k, v := range initialVariables {
		vars[k] = v
	}
	return &ExecutionState{
		WorkflowID:   workflowID,
		ExecutionID:  executionID,
		StepStatuses: make(map[string]StepStatus),
		Variables:    vars,
		StepOutputs:  make(map[string]map[string]any),
	}
}

// SetStepStatus applies a status transition, enforcing monotonicity. It is
// a no-op (and reports false) if the transition would regress.
func (s *ExecutionState) SetStepStatus(stepID string, status StepStatus) bool {
	current, ok := s.StepStatuses[stepID]
	if !ok {
		current = StepPending
	}
	if !CanTransition(current, status) {
		return false
	}
	s.StepStatuses[stepID] = status
	return true
}

// AppendError appends an error entry; Errors is never mutated in place.
func (s *ExecutionState) AppendError(stepID, message string, ts time.Time) {
	s.Errors = append(s.Errors, ErrorEntry{StepID: stepID, Message: message, Timestamp: ts})
}

// Router computes the post-step routing decision from state (spec.md §4.6.4).
type Route string

const (
	RouteContinue     Route = "continue"
	RouteStop         Route = "stop"
	RouteWaitApproval Route = "wait_approval"
)

// Router inspects state and returns the next routing decision. should_stop
// always wins regardless of other fields.
func Router(s *ExecutionState) Route {
	if s.ShouldStop {
		return RouteStop
	}
	if s.WaitingApproval {
		return RouteWaitApproval
	}
	return RouteContinue
}
