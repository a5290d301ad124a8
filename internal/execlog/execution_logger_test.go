package execlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionLogger_AccumulatesEntriesAcrossAttempts(t *testing.T) {
	logger := NewExecutionLogger("exec-1", "step-1")

	logger.StartAttempt(0)
	logger.Info("dispatch", "calling executor", nil)
	logger.StartAttempt(1)
	logger.Error("step_failed", "attempt 1 failed", "boom")

	entries := logger.Entries()
	assert.Len(t, entries, 4)
	assert.Equal(t, LogLevelError, entries[len(entries)-1].Level)
}

func TestExecutionLogger_LinesRendersLevelAndMessage(t *testing.T) {
	logger := NewExecutionLogger("exec-1", "step-1")
	logger.Info("dispatch", "calling executor", nil)

	lines := logger.Lines()
	assert.Equal(t, []string{"info: calling executor"}, lines)
}

func TestExecutionLogger_SummarizeCountsByLevel(t *testing.T) {
	logger := NewExecutionLogger("exec-1", "step-1")
	logger.Info("a", "fine", nil)
	logger.Warn("b", "careful", nil)
	logger.Error("c", "broken", "err")

	summary := logger.Summarize()
	assert.Equal(t, 3, summary.TotalEntries)
	assert.Equal(t, 1, summary.WarningCount)
	assert.Equal(t, 1, summary.ErrorCount)
}
