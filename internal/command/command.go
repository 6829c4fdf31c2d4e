// Package command assembles the Unity editor batch-mode command line.
package command

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/wushustudios/teamcity-unity-plugin/internal/errors"
	"github.com/wushustudios/teamcity-unity-plugin/internal/version"
)

// Unity batch-mode flags.
const (
	FlagBatchMode     = "-batchmode"
	FlagProjectPath   = "-projectPath"
	FlagBuildTarget   = "-buildTarget"
	FlagRunTests      = "-runTests"
	FlagNoGraphics    = "-nographics"
	FlagExecuteMethod = "-executeMethod"
	FlagQuit          = "-quit"
	FlagTestResults   = "-testResults"
	FlagTestPlatform  = "-testPlatform"
	FlagTestCategory  = "-testCategory"
	FlagTestFilter    = "-testFilter"
	FlagCacheServer   = "-CacheServerIPAddress"
	FlagLogFile       = "-logFile"
)

// stdoutLogMajor is the first editor major version able to write its log to
// standard output on windows. Older editors on windows need a log file path,
// which the runner then tails.
const stdoutLogMajor = 2019

// Spec describes one editor invocation. Built per build execution and
// discarded after the process exits.
type Spec struct {
	// Executable is the resolved editor binary path.
	Executable string

	// EditorVersion is the version of the resolved installation.
	EditorVersion version.Version

	// GOOS is the host OS family, as in runtime.GOOS.
	GOOS string

	// WorkDir resolves relative project and player paths.
	WorkDir string

	// ProjectPath is the Unity project directory. Required.
	ProjectPath string

	// BuildTarget is the target platform name, e.g. "Android".
	BuildTarget string

	// PlayerFlag is the build-player flag name without the leading dash,
	// e.g. "buildWindows64Player". Only emitted together with PlayerPath.
	PlayerFlag string

	// PlayerPath is the output path for the built player.
	PlayerPath string

	// RunTests requests a test run instead of a plain batch build.
	RunTests bool

	// NoGraphics disables graphics device initialization.
	NoGraphics bool

	// ExecuteMethod is a static method to invoke, e.g. "Builder.Build".
	ExecuteMethod string

	// Arguments is the free-form extra arguments string; tokens respect
	// single and double quotes and are appended verbatim.
	Arguments string

	// TestPlatform, TestCategories and TestNames filter the test run.
	TestPlatform   string
	TestCategories []string
	TestNames      []string

	// CacheServer is the cache server address from the feature-level
	// parameter set.
	CacheServer string
}

// Invocation is the assembled command line plus the auxiliary file paths the
// lifecycle hooks need.
type Invocation struct {
	// Executable is the editor binary to launch.
	Executable string

	// Args are the command line arguments, in emission order.
	Args []string

	// LogFile is the temp log path to tail, empty when the editor writes
	// its log to standard output.
	LogFile string

	// TestReport is the test report path to import after the run, empty
	// when no tests were requested.
	TestReport string
}

// Build assembles the invocation for the given spec.
func Build(spec *Spec) (*Invocation, error) {
	if spec.ProjectPath == "" {
		return nil, errors.ErrNoProject
	}

	args := []string{FlagBatchMode}

	args = append(args, FlagProjectPath, resolvePath(spec.WorkDir, spec.ProjectPath))

	if spec.BuildTarget != "" {
		args = append(args, FlagBuildTarget, spec.BuildTarget)
	}

	if spec.PlayerFlag != "" && spec.PlayerPath != "" {
		args = append(args, "-"+spec.PlayerFlag, resolvePath(spec.WorkDir, spec.PlayerPath))
	}

	if spec.RunTests {
		args = append(args, FlagRunTests)
	}

	if spec.NoGraphics {
		args = append(args, FlagNoGraphics)
	}

	if spec.ExecuteMethod != "" {
		args = append(args, FlagExecuteMethod, spec.ExecuteMethod)
	}

	extra := Tokenize(spec.Arguments)
	args = append(args, extra...)

	inv := &Invocation{Executable: spec.Executable}

	if spec.RunTests {
		// The editor quits by itself after a test run, so no -quit.
		// Reuse an explicit report path from the extra arguments, else
		// mint a fresh temp file.
		if report := valueAfter(extra, FlagTestResults); report != "" {
			inv.TestReport = report
		} else {
			inv.TestReport = tempPath("unity-tests", ".xml")
			args = append(args, FlagTestResults, inv.TestReport)
		}

		if spec.TestPlatform != "" {
			args = append(args, FlagTestPlatform, spec.TestPlatform)
		}

		if len(spec.TestCategories) > 0 {
			args = append(args, FlagTestCategory, strings.Join(spec.TestCategories, ","))
		}

		if len(spec.TestNames) > 0 {
			args = append(args, FlagTestFilter, strings.Join(spec.TestNames, ","))
		}

		if spec.CacheServer != "" {
			args = append(args, FlagCacheServer, spec.CacheServer)
		}
	} else {
		args = append(args, FlagQuit)
	}

	// Editors before 2019 on windows cannot write their log to standard
	// output; give them a file and tail it instead.
	if spec.GOOS == "windows" && spec.EditorVersion.Major < stdoutLogMajor {
		inv.LogFile = tempPath("unity-build", ".log")
		args = append(args, FlagLogFile, inv.LogFile)
	} else {
		args = append(args, FlagLogFile)
	}

	inv.Args = args

	return inv, nil
}

// resolvePath resolves a relative path against the working directory.
// Absolute paths pass through unchanged.
func resolvePath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// tempPath returns a unique path under the OS temp directory.
func tempPath(prefix, ext string) string {
	return filepath.Join(os.TempDir(), prefix+"-"+ulid.Make().String()+ext)
}

// valueAfter returns the token following the given flag, matching Unity's
// case-insensitive flag handling. Empty when the flag is absent or last.
func valueAfter(tokens []string, flag string) string {
	for i, tok := range tokens {
		if strings.EqualFold(tok, flag) && i+1 < len(tokens) {
			return tokens[i+1]
		}
	}

	return ""
}

// Tokenize splits a free-form arguments string on whitespace, keeping
// single- and double-quoted runs together. Quotes are stripped; there is no
// escape character.
func Tokenize(s string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		started bool
	)

	flush := func() {
		if started {
			tokens = append(tokens, current.String())
			current.Reset()

			started = false
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			started = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			current.WriteRune(r)

			started = true
		}
	}

	flush()

	return tokens
}
