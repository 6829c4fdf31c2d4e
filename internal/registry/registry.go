// Package registry discovers Unity installations and resolves version
// requests to a concrete editor binary.
//
// A Registry is an immutable snapshot built once by Scan, at agent
// configuration load. Reconfiguration rebuilds a fresh snapshot wholesale;
// nothing mutates a Registry after Scan returns.
package registry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wushustudios/teamcity-unity-plugin/internal/detect"
	"github.com/wushustudios/teamcity-unity-plugin/internal/errors"
	"github.com/wushustudios/teamcity-unity-plugin/internal/version"
)

// ToolName is the tool identifier this registry resolves.
const ToolName = "UnityEditor"

// Installation is a discovered copy of the Unity editor.
type Installation struct {
	// Version is the editor version parsed from the install directory.
	Version version.Version

	// Path is the absolute path of the editor binary.
	Path string
}

// Registry holds the installations discovered on this machine, sorted by
// version ascending.
type Registry struct {
	log      *slog.Logger
	installs []Installation
	searched []string
}

// Scan discovers installations under the detector's roots plus any hint
// directories (e.g. an agent-managed tools directory). The UNITY_HOME
// environment variable, when set, is probed as one more installation.
//
// Roots are scanned concurrently; roots that do not exist are skipped.
func Scan(ctx context.Context, log *slog.Logger, det detect.Detector, hints ...string) (*Registry, error) {
	log = log.With("component", "registry")

	roots := append(det.Roots(), hints...)

	var (
		mu       sync.Mutex
		installs []Installation
	)

	eg, ctx := errgroup.WithContext(ctx)

	for _, root := range roots {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			found := scanRoot(log, det, root)

			mu.Lock()
			installs = append(installs, found...)
			mu.Unlock()

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if override := os.Getenv(errors.EnvToolOverride); override != "" {
		if inst, ok := probeInstall(log, det, override); ok {
			installs = append(installs, inst)
		}
	}

	slices.SortFunc(installs, func(a, b Installation) int {
		return version.Compare(a.Version, b.Version)
	})

	log.Debug("Registry scan complete", "installations", len(installs), "roots", len(roots))

	return &Registry{
		log:      log,
		installs: installs,
		searched: roots,
	}, nil
}

// scanRoot reads one root directory and probes each subdirectory as an
// installation.
func scanRoot(log *slog.Logger, det detect.Detector, root string) []Installation {
	entries, err := os.ReadDir(root)
	if err != nil {
		log.Debug("Skipping unreadable root", "root", root, "error", err)

		return nil
	}

	var found []Installation

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if inst, ok := probeInstall(log, det, filepath.Join(root, entry.Name())); ok {
			found = append(found, inst)
		}
	}

	return found
}

// probeInstall checks whether installDir holds a Unity editor. The version
// comes from the directory name; directories that are not version-named or
// have no editor binary are skipped.
func probeInstall(log *slog.Logger, det detect.Detector, installDir string) (Installation, bool) {
	ver, err := version.Parse(filepath.Base(installDir))
	if err != nil {
		log.Debug("Skipping non-version directory", "dir", installDir)

		return Installation{}, false
	}

	editor := det.EditorPath(installDir)
	if _, err := os.Stat(editor); err != nil {
		log.Debug("No editor binary in installation", "dir", installDir, "error", err)

		return Installation{}, false
	}

	log.Debug("Found installation", "version", ver, "path", editor)

	return Installation{Version: ver, Path: editor}, true
}

// Installations returns a copy of the discovered installations, version
// ascending.
func (r *Registry) Installations() []Installation {
	return slices.Clone(r.installs)
}

// Locate resolves a version request to a concrete installation.
//
// With no requested version it returns the greatest installed version.
// Otherwise it returns the greatest installation whose version is >= the
// request. Among all qualifying versions the maximum wins, never the
// minimum sufficient match.
func (r *Registry) Locate(requested *version.Version) (Installation, error) {
	if len(r.installs) == 0 {
		return Installation{}, r.notFound(requested)
	}

	if requested == nil {
		return r.installs[len(r.installs)-1], nil
	}

	// Installs are sorted ascending, so the last qualifying entry is the
	// greatest one.
	for i := len(r.installs) - 1; i >= 0; i-- {
		if r.installs[i].Version.AtLeast(*requested) {
			return r.installs[i], nil
		}
	}

	return Installation{}, r.notFound(requested)
}

// LocateTool is Locate for agents hosting several tool providers: a tool
// name other than ToolName fails with ToolNotFoundError.
func (r *Registry) LocateTool(toolName string, requested *version.Version) (Installation, error) {
	if toolName != ToolName {
		r.log.Warn("Unknown tool requested", "tool", toolName)

		return Installation{}, &errors.ToolNotFoundError{Tool: toolName}
	}

	return r.Locate(requested)
}

func (r *Registry) notFound(requested *version.Version) error {
	err := &errors.ToolNotFoundError{
		Tool:          ToolName,
		SearchedPaths: slices.Clone(r.searched),
	}

	if requested != nil {
		err.Requested = requested.String()
	}

	r.log.Warn("No installation satisfies request", "error", err)

	return err
}

// Parameters returns the discovered installations as configuration
// parameters, one "<prefix><version>" -> editor path entry each, for
// publication to the agent.
func (r *Registry) Parameters(prefix string) map[string]string {
	params := make(map[string]string, len(r.installs))

	for _, inst := range r.installs {
		params[prefix+inst.Version.String()] = inst.Path
	}

	return params
}
