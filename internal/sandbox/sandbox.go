// Package sandbox runs python_script step bodies as isolated
// subprocesses (C4). Its process-level controls (timeout via
// context.WithTimeout, stdout and stderr captured into separate buffers,
// output truncation) are adapted from the teacher's pkg/harness/tools/bash.go
// executeBashDirect, which applies the same discipline to shell commands.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/relaykit/orchestrate/internal/model"
)

// maxOutputBytes bounds captured stdout/stderr, mirroring bash.go's
// maxBashOutputLength guard against runaway script output.
const maxOutputBytes = 64 * 1024

const defaultTimeout = 300 * time.Second

// Runner executes python_script bodies via an external interpreter.
type Runner struct {
	// Interpreter is the executable invoked against the persisted script
	// file, e.g. "python3". Configurable so tests can substitute a stub
	// binary.
	Interpreter string
}

// NewRunner builds a Runner that shells out to python3.
func NewRunner() *Runner {
	return &Runner{Interpreter: "python3"}
}

// Run persists code and vars to temp files, spawns the interpreter
// against them, and interprets its stdout/stderr/exit code as the step
// output (spec.md §4.4 "Protocol between engine and script"). Both temp
// files are always removed before Run returns, success or failure.
func (r *Runner) Run(ctx context.Context, code string, vars map[string]any, timeout time.Duration) model.StepResult {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	scriptPath, err := writeTempFile("script-*.py", []byte(code))
	if err != nil {
		return model.Fail(fmt.Sprintf("failed to persist script: %v", err), nil)
	}
	defer os.Remove(scriptPath)

	varsJSON, err := json.Marshal(vars)
	if err != nil {
		return model.Fail(fmt.Sprintf("failed to marshal variables: %v", err), nil)
	}
	varsPath, err := writeTempFile("vars-*.json", varsJSON)
	if err != nil {
		return model.Fail(fmt.Sprintf("failed to persist variables: %v", err), nil)
	}
	defer os.Remove(varsPath)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Interpreter, scriptPath, "--variables-file", varsPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	out := truncate(stdout.Bytes())
	errOut := truncate(stderr.Bytes())
	logs := splitLogs(errOut)

	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result := model.Fail(fmt.Sprintf("script timed out after %s", timeout), nil)
		result.Logs = logs
		return result
	}

	if runErr != nil {
		result := model.Fail(fmt.Sprintf("script exited with error: %v", tail(errOut)), nil)
		result.Logs = logs
		return result
	}

	trimmed := bytes.TrimSpace(out)
	var data any
	if err := json.Unmarshal(trimmed, &data); err == nil {
		result := model.Ok(asOutputMap(data))
		result.Logs = logs
		return result
	}

	// non-JSON stdout is still a successful run, wrapped as {"result": <raw>}.
	result := model.Ok(map[string]any{"result": string(trimmed)})
	result.Logs = logs
	return result
}

// asOutputMap normalizes a decoded JSON value into the map shape
// StepResult.Output carries; a non-object document is wrapped under
// "result" like the non-JSON fallback.
func asOutputMap(data any) map[string]any {
	if m, ok := data.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": data}
}

func writeTempFile(pattern string, content []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func splitLogs(stderr []byte) []string {
	if len(stderr) == 0 {
		return nil
	}
	return []string{string(stderr)}
}

func tail(stderr []byte) string {
	const tailBytes = 2048
	if len(stderr) <= tailBytes {
		return string(stderr)
	}
	return string(stderr[len(stderr)-tailBytes:])
}

func truncate(b []byte) []byte {
	if len(b) <= maxOutputBytes {
		return b
	}
	return append(b[:maxOutputBytes:maxOutputBytes], []byte("...[truncated]")...)
}
