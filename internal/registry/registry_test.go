package registry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wushustudios/teamcity-unity-plugin/internal/errors"
	"github.com/wushustudios/teamcity-unity-plugin/internal/version"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDetector points detection at a temp directory tree.
type fakeDetector struct {
	roots []string
}

func (*fakeDetector) Name() string { return "fake" }

func (d *fakeDetector) Roots() []string { return d.roots }

func (*fakeDetector) EditorPath(installDir string) string {
	return filepath.Join(installDir, "Editor", "Unity")
}

// makeInstall creates a fake installation directory with an editor binary.
func makeInstall(t *testing.T, root, ver string) string {
	t.Helper()

	editorDir := filepath.Join(root, ver, "Editor")
	require.NoError(t, os.MkdirAll(editorDir, 0o755))

	editor := filepath.Join(editorDir, "Unity")
	require.NoError(t, os.WriteFile(editor, []byte("#!/bin/sh\n"), 0o755))

	return editor
}

func mustVersion(t *testing.T, s string) *version.Version {
	t.Helper()

	v, err := version.Parse(s)
	require.NoError(t, err)

	return &v
}

func scanTree(t *testing.T, versions ...string) *Registry {
	t.Helper()

	root := t.TempDir()
	for _, v := range versions {
		makeInstall(t, root, v)
	}

	reg, err := Scan(context.Background(), discardLogger(), &fakeDetector{roots: []string{root}})
	require.NoError(t, err)

	return reg
}

// TestScan_SortsAscending tests that discovered installations come back in
// version order regardless of directory listing order.
func TestScan_SortsAscending(t *testing.T) {
	reg := scanTree(t, "2021.3.2f1", "2019.4.40", "2020.1.0")

	installs := reg.Installations()

	require.Len(t, installs, 3)
	require.Equal(t, "2019.4.40", installs[0].Version.String())
	require.Equal(t, "2020.1.0", installs[1].Version.String())
	require.Equal(t, "2021.3.2f1", installs[2].Version.String())
}

// TestScan_SkipsNonInstallations tests that non-version directories and
// version directories without an editor binary are ignored.
func TestScan_SkipsNonInstallations(t *testing.T) {
	root := t.TempDir()
	makeInstall(t, root, "2020.3.1")

	// Version-named directory with no editor inside
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2021.1.0"), 0o755))
	// Not a version name at all
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Hub"), 0o755))

	reg, err := Scan(context.Background(), discardLogger(), &fakeDetector{roots: []string{root}})
	require.NoError(t, err)

	require.Len(t, reg.Installations(), 1)
}

// TestScan_MissingRootsAndHints tests that nonexistent roots are skipped
// and hint directories are merged into the search.
func TestScan_MissingRootsAndHints(t *testing.T) {
	hint := t.TempDir()
	makeInstall(t, hint, "2022.2.0b3")

	det := &fakeDetector{roots: []string{"/nonexistent/unity/root"}}

	reg, err := Scan(context.Background(), discardLogger(), det, hint)
	require.NoError(t, err)

	installs := reg.Installations()
	require.Len(t, installs, 1)
	require.Equal(t, "2022.2.0b3", installs[0].Version.String())
}

// TestScan_ToolOverrideEnv tests that UNITY_HOME contributes an extra
// installation.
func TestScan_ToolOverrideEnv(t *testing.T) {
	root := t.TempDir()
	makeInstall(t, root, "2019.2.0")

	t.Setenv(errors.EnvToolOverride, filepath.Join(root, "2019.2.0"))

	reg, err := Scan(context.Background(), discardLogger(), &fakeDetector{roots: nil})
	require.NoError(t, err)

	installs := reg.Installations()
	require.Len(t, installs, 1)
	require.Equal(t, "2019.2.0", installs[0].Version.String())
}

// TestLocate_Latest tests that an absent request resolves to the greatest
// installed version.
func TestLocate_Latest(t *testing.T) {
	reg := scanTree(t, "2019.4.40", "2021.3.2f1", "2020.1.0")

	inst, err := reg.Locate(nil)

	require.NoError(t, err)
	require.Equal(t, "2021.3.2f1", inst.Version.String())
}

// TestLocate_MaximumQualifying tests that the greatest version >= the
// request wins, not the minimum sufficient one.
func TestLocate_MaximumQualifying(t *testing.T) {
	reg := scanTree(t, "2019.4.40", "2020.1.0", "2021.3.2f1")

	inst, err := reg.Locate(mustVersion(t, "2019.4.40"))

	require.NoError(t, err)
	require.Equal(t, "2021.3.2f1", inst.Version.String())
}

// TestLocate_ExactTop tests resolution when only the greatest entry
// qualifies.
func TestLocate_ExactTop(t *testing.T) {
	reg := scanTree(t, "2019.4.40", "2021.3.2f1")

	inst, err := reg.Locate(mustVersion(t, "2021.0.0"))

	require.NoError(t, err)
	require.Equal(t, "2021.3.2f1", inst.Version.String())
}

// TestLocate_NoQualifier tests the hard failure when nothing satisfies
// the constraint.
func TestLocate_NoQualifier(t *testing.T) {
	reg := scanTree(t, "2019.4.40")

	_, err := reg.Locate(mustVersion(t, "2022.1.0"))

	require.Error(t, err)

	var notFound *errors.ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, ToolName, notFound.Tool)
	require.Equal(t, "2022.1.0", notFound.Requested)
	require.Contains(t, err.Error(), errors.EnvToolOverride)
}

// TestLocate_EmptyRegistry tests that an empty registry fails every
// lookup, requested or not.
func TestLocate_EmptyRegistry(t *testing.T) {
	reg := scanTree(t)

	_, err := reg.Locate(nil)
	require.Error(t, err)

	var notFound *errors.ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
}

// TestLocateTool tests that only the supported tool identifier resolves.
func TestLocateTool(t *testing.T) {
	reg := scanTree(t, "2021.3.2f1")

	inst, err := reg.LocateTool(ToolName, nil)
	require.NoError(t, err)
	require.Equal(t, "2021.3.2f1", inst.Version.String())

	_, err = reg.LocateTool("GodotEditor", nil)

	var notFound *errors.ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "GodotEditor", notFound.Tool)
}

// TestParameters tests publication of discovered installations as
// prefixed configuration parameters.
func TestParameters(t *testing.T) {
	reg := scanTree(t, "2019.4.40", "2021.3.2f1")

	params := reg.Parameters("unity.path.")

	require.Len(t, params, 2)
	require.Contains(t, params, "unity.path.2019.4.40")
	require.Contains(t, params, "unity.path.2021.3.2f1")

	for _, path := range params {
		require.FileExists(t, path)
	}
}
