package unityrunner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"sync"
	"time"

	goerrors "errors"

	"github.com/wushustudios/teamcity-unity-plugin/internal/command"
	"github.com/wushustudios/teamcity-unity-plugin/internal/config"
	"github.com/wushustudios/teamcity-unity-plugin/internal/detect"
	"github.com/wushustudios/teamcity-unity-plugin/internal/errors"
	"github.com/wushustudios/teamcity-unity-plugin/internal/registry"
	"github.com/wushustudios/teamcity-unity-plugin/internal/tailer"
	"github.com/wushustudios/teamcity-unity-plugin/internal/teamcity"
	"github.com/wushustudios/teamcity-unity-plugin/internal/version"
)

// Re-export parameter and registry types from internal packages.

// Params are the step-level build parameters.
type Params = config.Params

// FeatureParams are the feature-level parameters.
type FeatureParams = config.FeatureParams

// Document is the full parameters document.
type Document = config.Document

// Installation is a discovered copy of the Unity editor.
type Installation = registry.Installation

// Registry is an immutable snapshot of the installations on this machine.
type Registry = registry.Registry

// LoadParams decodes and validates a JSON parameters document.
func LoadParams(r io.Reader) (*Document, error) {
	return config.Load(r)
}

// ParameterPrefix prefixes the configuration parameters published for every
// discovered installation: "<prefix><version>" -> editor path.
const ParameterPrefix = "unity.path."

// testReportType is the report kind the server imports after a test run.
const testReportType = "nunit"

// State is a phase of the runner lifecycle.
type State string

const (
	// StateNotStarted is the initial state.
	StateNotStarted State = "not_started"
	// StateStarting covers the before-start hook (tailer launch).
	StateStarting State = "starting"
	// StateRunning means the editor process is executing.
	StateRunning State = "running"
	// StateFinished means the process exited and the after-finish hook ran.
	StateFinished State = "finished"
)

// Result describes one finished build step.
type Result struct {
	// ExitCode is the editor process exit code.
	ExitCode int

	// Installation is the editor that ran.
	Installation Installation

	// LogFile is the tailed log path, empty when the editor logged to
	// standard output.
	LogFile string

	// TestReport is the test report path, empty when no tests ran.
	TestReport string
}

// Runner executes one Unity build step: resolve an installation, assemble
// the batch-mode command line, run the editor, and stream its log to the
// build console. Runners are single-use.
type Runner struct {
	log        *slog.Logger
	params     Params
	feature    FeatureParams
	workDir    string
	out        io.Writer
	hints      []string
	goos       string
	registry   *Registry
	drainGrace time.Duration

	mu    sync.Mutex
	state State
	tail  *tailer.Tailer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the slog logger for operation tracking.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithParams sets the step-level build parameters.
func WithParams(params Params) Option {
	return func(r *Runner) { r.params = params }
}

// WithFeatureParams sets the feature-level parameter set.
func WithFeatureParams(feature FeatureParams) Option {
	return func(r *Runner) { r.feature = feature }
}

// WithDocument sets step and feature parameters from a loaded document.
func WithDocument(doc *Document) Option {
	return func(r *Runner) {
		r.params = doc.Params
		r.feature = doc.Feature
	}
}

// WithWorkDir sets the build working directory. Defaults to the process
// working directory.
func WithWorkDir(dir string) Option {
	return func(r *Runner) { r.workDir = dir }
}

// WithOutput sets the build console writer. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithHintDirs adds extra directories to scan for installations, e.g. an
// agent-managed tools directory.
func WithHintDirs(dirs ...string) Option {
	return func(r *Runner) { r.hints = append(r.hints, dirs...) }
}

// WithRegistry injects a pre-built installation registry, skipping the
// scan. Used when the agent scans once at configuration load and runs many
// steps against the same snapshot.
func WithRegistry(reg *Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// New creates a runner for one build step.
func New(opts ...Option) *Runner {
	r := &Runner{
		log:        NopLogger(),
		out:        os.Stdout,
		goos:       runtime.GOOS,
		drainGrace: tailer.DrainGrace,
		state:      StateNotStarted,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.log = r.log.With("component", "unity_runner")

	return r
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()

	r.log.Debug("Runner state changed", "state", s)
}

// Run executes the build step synchronously. The editor process inherits
// ctx; cancellation kills it. Run returns the result together with a
// *ProcessError when the editor exits nonzero.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()

	if r.state != StateNotStarted {
		r.mu.Unlock()

		return nil, errors.ErrAlreadyStarted
	}

	r.mu.Unlock()

	if r.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}

		r.workDir = wd
	}

	inst, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}

	r.log.Info("Resolved Unity installation", "version", inst.Version, "path", inst.Path)

	inv, err := command.Build(&command.Spec{
		Executable:     inst.Path,
		EditorVersion:  inst.Version,
		GOOS:           r.goos,
		WorkDir:        r.workDir,
		ProjectPath:    r.params.ProjectPath,
		BuildTarget:    r.params.BuildTarget,
		PlayerFlag:     r.params.PlayerFlag,
		PlayerPath:     r.params.PlayerPath,
		RunTests:       r.params.RunTests,
		NoGraphics:     r.params.NoGraphics,
		ExecuteMethod:  r.params.ExecuteMethod,
		Arguments:      r.params.Arguments,
		TestPlatform:   r.params.TestPlatform,
		TestCategories: r.params.TestCategories,
		TestNames:      r.params.TestNames,
		CacheServer:    r.feature.CacheServer,
	})
	if err != nil {
		return nil, fmt.Errorf("build command line: %w", err)
	}

	r.log.Debug("Built command line", "executable", inv.Executable, "args", inv.Args)

	r.beforeStart(inv)

	//nolint:gosec // G204: launching the resolved editor binary is the point
	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	cmd.Dir = r.workDir
	cmd.Stdout = r.out
	cmd.Stderr = r.out

	if err := cmd.Start(); err != nil {
		r.afterFinish(inv)

		return nil, fmt.Errorf("start editor process: %w", err)
	}

	r.setState(StateRunning)
	r.log.Info("Editor process started", "pid", cmd.Process.Pid)

	runErr := cmd.Wait()

	r.afterFinish(inv)

	result := &Result{
		ExitCode:     cmd.ProcessState.ExitCode(),
		Installation: inst,
		LogFile:      inv.LogFile,
		TestReport:   inv.TestReport,
	}

	if runErr != nil {
		if exitErr, ok := goerrors.AsType[*exec.ExitError](runErr); ok {
			r.log.Error("Editor process failed", "exit_code", exitErr.ExitCode())

			return result, &errors.ProcessError{ExitCode: exitErr.ExitCode(), Err: runErr}
		}

		return result, fmt.Errorf("wait for editor process: %w", runErr)
	}

	r.log.Info("Editor process finished", "exit_code", result.ExitCode)

	return result, nil
}

// resolve scans (unless a registry was injected), publishes the discovered
// installations as configuration parameters, and selects the installation
// for the requested version.
func (r *Runner) resolve(ctx context.Context) (Installation, error) {
	reg := r.registry

	if reg == nil {
		det, ok := detect.ForOS(r.goos)
		if !ok {
			r.log.Error("No installation detector for host OS", "goos", r.goos)

			return Installation{}, &errors.ToolNotFoundError{Tool: registry.ToolName}
		}

		var err error

		reg, err = registry.Scan(ctx, r.log, det, r.hints...)
		if err != nil {
			return Installation{}, fmt.Errorf("scan installations: %w", err)
		}
	}

	r.publishParameters(reg)

	var requested *version.Version

	if s := r.effectiveVersion(); s != "" {
		v, err := version.Parse(s)
		if err != nil {
			// Parse failures propagate as-is, no recovery.
			return Installation{}, err
		}

		requested = &v
	}

	return reg.Locate(requested)
}

// effectiveVersion applies the feature-level override to the step-level
// version request.
func (r *Runner) effectiveVersion() string {
	if r.feature.Version != "" {
		return r.feature.Version
	}

	return r.params.Version
}

// publishParameters emits a setParameter message per discovered
// installation, in stable order.
func (r *Runner) publishParameters(reg *Registry) {
	params := reg.Parameters(ParameterPrefix)

	for _, name := range slices.Sorted(maps.Keys(params)) {
		if err := teamcity.SetParameter(r.out, name, params[name]); err != nil {
			r.log.Warn("Failed to publish parameter", "name", name, "error", err)
		}
	}
}

// beforeStart is the pre-start hook: enter Starting and begin tailing the
// log file when the editor cannot write its log to standard output.
func (r *Runner) beforeStart(inv *command.Invocation) {
	r.setState(StateStarting)

	if inv.LogFile == "" {
		return
	}

	r.tail = tailer.New(r.log, inv.LogFile, func(line string) {
		fmt.Fprintln(r.out, line)
	})

	r.tail.Start()
}

// afterFinish is the post-exit hook: drain and stop the tailer, emit the
// test-report import directive, enter Finished.
func (r *Runner) afterFinish(inv *command.Invocation) {
	if r.tail != nil {
		// Grace period so the tailer picks up lines the editor wrote
		// right before exiting.
		time.Sleep(r.drainGrace)
		r.tail.Stop()
	}

	if inv.TestReport != "" {
		if err := teamcity.ImportData(r.out, testReportType, inv.TestReport); err != nil {
			r.log.Warn("Failed to emit import directive", "error", err)
		}
	}

	r.setState(StateFinished)
}
