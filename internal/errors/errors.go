package errors

import (
	"errors"
	"fmt"
	"strings"
)

// RunnerError is the base interface for all runner errors.
type RunnerError interface {
	error
	IsRunnerError() bool
}

// Compile-time verification that all error types implement RunnerError.
var (
	_ RunnerError = (*ToolNotFoundError)(nil)
	_ RunnerError = (*ProcessError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrAlreadyStarted indicates Run was called on a runner that has
	// already executed. Runners are single-use.
	ErrAlreadyStarted = errors.New("runner already started: runners are single-use, create a new one with New()")

	// ErrNoProject indicates the project directory parameter is missing.
	ErrNoProject = errors.New("project directory parameter is empty")
)

// EnvToolOverride is the environment variable users can set to point the
// runner at an explicit Unity installation when auto-detection fails.
const EnvToolOverride = "UNITY_HOME"

// ToolNotFoundError indicates no Unity installation satisfied the request.
// It covers an unsupported host OS, an unknown tool name, and the case
// where no installed version qualifies.
type ToolNotFoundError struct {
	// Tool is the requested tool identifier.
	Tool string

	// Requested is the requested version constraint, empty for "latest".
	Requested string

	// SearchedPaths are the directories that were scanned, if any.
	SearchedPaths []string
}

func (e *ToolNotFoundError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "unable to find %s", e.Tool)

	if e.Requested != "" {
		fmt.Fprintf(&b, " version %s or newer", e.Requested)
	}

	if len(e.SearchedPaths) > 0 {
		fmt.Fprintf(&b, " (searched: %s)", strings.Join(e.SearchedPaths, ", "))
	}

	fmt.Fprintf(&b, "; set %s to the installation directory to override auto-detection", EnvToolOverride)

	return b.String()
}

// IsRunnerError implements RunnerError.
func (e *ToolNotFoundError) IsRunnerError() bool { return true }

// ProcessError indicates the editor process exited with a failure.
type ProcessError struct {
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("editor process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("editor process failed (exit %d)", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsRunnerError implements RunnerError.
func (e *ProcessError) IsRunnerError() bool { return true }
