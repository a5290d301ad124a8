package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_TimesOutOnSlowScript(t *testing.T) {
	r := &Runner{Interpreter: "sh"}
	result := r.Run(context.Background(), "sleep 5", nil, 50*time.Millisecond)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out")
}

func TestRun_NonJSONStdoutIsSurfacedAsRawResult(t *testing.T) {
	r := &Runner{Interpreter: "sh"}
	result := r.Run(context.Background(), "echo not-json", nil, time.Second)
	assert.True(t, result.Success)
	assert.Equal(t, "not-json", result.Output["result"])
}

func TestRun_JSONObjectStdoutBecomesOutput(t *testing.T) {
	r := &Runner{Interpreter: "sh"}
	result := r.Run(context.Background(), `echo '{"total": 7}'`, nil, time.Second)
	assert.True(t, result.Success)
	assert.Equal(t, float64(7), result.Output["total"])
}

func TestRun_NonZeroExitSurfacesStderrTail(t *testing.T) {
	r := &Runner{Interpreter: "sh"}
	result := r.Run(context.Background(), "echo boom 1>&2; exit 1", nil, time.Second)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
}

func TestRun_VariablesFileFlagIsPassedAndReadable(t *testing.T) {
	r := &Runner{Interpreter: "sh"}
	script := `
for arg in "$@"; do
  if [ "$prev" = "--variables-file" ]; then
    cat "$arg"
  fi
  prev="$arg"
done
`
	result := r.Run(context.Background(), script, map[string]any{"x": 1}, time.Second)
	assert.True(t, result.Success)
	assert.Equal(t, float64(1), result.Output["x"])
}

func TestTruncate_BoundsOutputLength(t *testing.T) {
	big := make([]byte, maxOutputBytes+100)
	out := truncate(big)
	assert.LessOrEqual(t, len(out), maxOutputBytes+len("...[truncated]"))
}
