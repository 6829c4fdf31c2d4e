package unityrunner

import "github.com/wushustudios/teamcity-unity-plugin/internal/errors"

// Re-export error types from internal package

// ToolNotFoundError indicates no Unity installation satisfied the request.
type ToolNotFoundError = errors.ToolNotFoundError

// ProcessError indicates the editor process exited with a failure.
type ProcessError = errors.ProcessError

// RunnerError is the base interface for all runner errors.
type RunnerError = errors.RunnerError

// EnvToolOverride is the environment variable users can set to point the
// runner at an explicit Unity installation when auto-detection fails.
const EnvToolOverride = errors.EnvToolOverride

// Re-export sentinel errors from internal package.
var (
	// ErrAlreadyStarted indicates Run was called on a runner that has
	// already executed.
	ErrAlreadyStarted = errors.ErrAlreadyStarted

	// ErrNoProject indicates the project directory parameter is empty.
	ErrNoProject = errors.ErrNoProject
)
