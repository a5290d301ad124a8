// Package execlog accumulates the structured log entries attached to a
// StepExecution (spec.md §3 StepExecution.logs). It is adapted from the
// teacher's internal/execution/logging/execution_logger.go
// ExecutionLogger, trimmed of its genkit-model-turn-specific fields
// (token usage, tool-call lists, turn-limit warnings) since this engine
// logs step attempts, not LLM conversation turns.
package execlog

import (
	"encoding/json"
	"fmt"
	"time"
)

// LogLevel is the severity of one log entry.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// LogEntry is one user-visible log line attached to a step attempt.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Attempt   int                    `json:"attempt"`
	Event     string                 `json:"event"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ExecutionLogger accumulates log entries for one step execution.
type ExecutionLogger struct {
	executionID string
	stepID      string
	startTime   time.Time
	entries     []LogEntry
	attempt     int
}

// NewExecutionLogger builds a logger scoped to one (execution, step) pair.
func NewExecutionLogger(executionID, stepID string) *ExecutionLogger {
	return &ExecutionLogger{
		executionID: executionID,
		stepID:      stepID,
		startTime:   time.Now(),
		entries:     make([]LogEntry, 0),
	}
}

// StartAttempt records the beginning of one retry attempt.
func (l *ExecutionLogger) StartAttempt(attempt int) {
	l.attempt = attempt
	l.add(LogLevelInfo, "attempt_start", fmt.Sprintf("starting attempt %d for step %s", attempt, l.stepID), nil)
}

// Info records an informational event.
func (l *ExecutionLogger) Info(event, message string, details map[string]interface{}) {
	l.add(LogLevelInfo, event, message, details)
}

// Warn records a warning event, e.g. an unresolved variable placeholder.
func (l *ExecutionLogger) Warn(event, message string, details map[string]interface{}) {
	l.add(LogLevelWarning, event, message, details)
}

// Error records a step failure.
func (l *ExecutionLogger) Error(event, message, errMsg string) {
	l.add(LogLevelError, event, message, map[string]interface{}{"error": errMsg})
}

func (l *ExecutionLogger) add(level LogLevel, event, message string, details map[string]interface{}) {
	l.entries = append(l.entries, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Attempt:   l.attempt,
		Event:     event,
		Message:   message,
		Details:   details,
	})
}

// Entries returns every accumulated log entry.
func (l *ExecutionLogger) Entries() []LogEntry {
	return l.entries
}

// Lines renders each entry as a flat "LEVEL: message" string, the shape
// model.StepExecution.Logs stores.
func (l *ExecutionLogger) Lines() []string {
	lines := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Level, e.Message))
	}
	return lines
}

// JSON serializes every entry, for callers that persist full structured
// logs rather than the flattened Lines.
func (l *ExecutionLogger) JSON() (string, error) {
	data, err := json.Marshal(l.entries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal log entries: %w", err)
	}
	return string(data), nil
}

// Summary reports entry counts by level, for quick health checks without
// walking the full entry list.
type Summary struct {
	Duration     time.Duration `json:"duration"`
	TotalEntries int           `json:"total_entries"`
	WarningCount int           `json:"warning_count"`
	ErrorCount   int           `json:"error_count"`
}

// Summarize computes a Summary over the accumulated entries.
func (l *ExecutionLogger) Summarize() Summary {
	var warnings, errs int
	for _, e := range l.entries {
		switch e.Level {
		case LogLevelWarning:
			warnings++
		case LogLevelError:
			errs++
		}
	}
	return Summary{
		Duration:     time.Since(l.startTime),
		TotalEntries: len(l.entries),
		WarningCount: warnings,
		ErrorCount:   errs,
	}
}
