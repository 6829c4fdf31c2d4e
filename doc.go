// Package unityrunner runs Unity editor build steps on a CI build agent.
//
// It locates the Unity installations on the machine, resolves a requested
// version (or the latest) to a concrete editor binary, assembles the
// batch-mode command line, executes the editor, and streams its log to the
// build console.
//
// # Basic Usage
//
//	ctx := context.Background()
//	runner := unityrunner.New(
//	    unityrunner.WithParams(unityrunner.Params{
//	        Version:     "2021.3",
//	        ProjectPath: "game/project",
//	        BuildTarget: "Android",
//	    }),
//	    unityrunner.WithLogger(slog.Default()),
//	)
//
//	result, err := runner.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("editor exited with %d\n", result.ExitCode)
//
// # Version Resolution
//
// Installations are discovered under the Unity Hub and legacy install
// locations for the host OS, plus any directories added with WithHintDirs
// and the UNITY_HOME environment variable. A version request resolves to
// the greatest installed version that is at least the requested one; with
// no request the greatest installed version wins. Every discovered
// installation is also published to the build as a "unity.path.<version>"
// configuration parameter.
//
// # Test Runs
//
// With Params.RunTests the editor runs the project's tests instead of
// quitting after the batch operation, and the runner emits a service
// message instructing the server to import the NUnit report the editor
// wrote.
//
// # Error Handling
//
//	result, err := runner.Run(ctx)
//	if err != nil {
//	    if nf, ok := errors.AsType[*unityrunner.ToolNotFoundError](err); ok {
//	        log.Fatalf("no Unity installation: %v", nf)
//	    }
//	    if procErr, ok := errors.AsType[*unityrunner.ProcessError](err); ok {
//	        log.Fatalf("editor failed with exit code %d", procErr.ExitCode)
//	    }
//	    log.Fatal(err)
//	}
package unityrunner
