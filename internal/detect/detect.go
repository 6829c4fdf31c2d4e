// Package detect selects the host-OS strategy for finding Unity editor
// installations.
//
// Detection is a closed set of three strategies (windows, darwin, linux),
// chosen once at startup from the host OS. Each strategy knows the install
// roots Unity Hub and legacy installers use on that platform, and how to
// reach the editor binary inside an installation directory. An unsupported
// OS has no detector and every lookup fails.
package detect

import (
	"os"
	"path/filepath"
)

// Detector is an OS-specific strategy for locating Unity installations.
type Detector interface {
	// Name identifies the strategy, matching runtime.GOOS.
	Name() string

	// Roots returns the candidate directories whose subdirectories are
	// Unity installations on this OS. Roots that do not exist are fine;
	// the scanner skips them.
	Roots() []string

	// EditorPath returns the path of the editor binary inside the given
	// installation directory.
	EditorPath(installDir string) string
}

// Compile-time verification that all strategies implement Detector.
var (
	_ Detector = (*windowsDetector)(nil)
	_ Detector = (*darwinDetector)(nil)
	_ Detector = (*linuxDetector)(nil)
)

// ForOS returns the detector for the given GOOS value. The second return
// value is false when the OS is unsupported.
func ForOS(goos string) (Detector, bool) {
	switch goos {
	case "windows":
		return &windowsDetector{}, true
	case "darwin":
		return &darwinDetector{}, true
	case "linux":
		return &linuxDetector{}, true
	default:
		return nil, false
	}
}

type windowsDetector struct{}

func (*windowsDetector) Name() string { return "windows" }

func (*windowsDetector) Roots() []string {
	return []string{
		`C:\Program Files\Unity\Hub\Editor`,
		`C:\Program Files\Unity`,
		`C:\Program Files (x86)\Unity`,
	}
}

func (*windowsDetector) EditorPath(installDir string) string {
	return filepath.Join(installDir, "Editor", "Unity.exe")
}

type darwinDetector struct{}

func (*darwinDetector) Name() string { return "darwin" }

func (*darwinDetector) Roots() []string {
	return []string{
		"/Applications/Unity/Hub/Editor",
		"/Applications/Unity",
	}
}

func (*darwinDetector) EditorPath(installDir string) string {
	return filepath.Join(installDir, "Unity.app", "Contents", "MacOS", "Unity")
}

type linuxDetector struct{}

func (*linuxDetector) Name() string { return "linux" }

func (*linuxDetector) Roots() []string {
	roots := []string{
		"/opt/Unity",
		"/opt/unity",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(homeDir, "Unity", "Hub", "Editor"))
	}

	return roots
}

func (*linuxDetector) EditorPath(installDir string) string {
	return filepath.Join(installDir, "Editor", "Unity")
}
