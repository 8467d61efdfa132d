package weave

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hookweave/internal/config"
	"hookweave/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, bin string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Toolchain.Bin = bin
	cfg.Project.Root = t.TempDir()
	cfg.Project.ArtifactDir = filepath.Join(t.TempDir(), "artifacts")
	return cfg
}

func stubToolchain(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakego")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func writeHookFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hooks.go")
	require.NoError(t, os.WriteFile(path, []byte("package hooks\n"), 0644))
	return path
}

func TestWeave_StagesHookFilesForBuild(t *testing.T) {
	// The stub records whether the staged hook file was present at build time.
	marker := filepath.Join(t.TempDir(), "seen")
	bin := stubToolchain(t, `if [ -f "`+StageDirName+`/hooks.go" ]; then touch "`+marker+`"; fi
echo "build ok"
`)
	cfg := testConfig(t, bin)
	w := New(cfg, session.NewManager())

	res, err := w.Weave(context.Background(), []string{writeHookFile(t)})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, string(res.Log), "build ok")

	_, err = os.Stat(marker)
	assert.NoError(t, err, "hook file must be staged while the toolchain runs")

	// Staged copies are cleaned up after the build.
	_, err = os.Stat(filepath.Join(cfg.Project.Root, StageDirName))
	assert.True(t, os.IsNotExist(err))
}

func TestWeave_SurfacesBuildFailure(t *testing.T) {
	bin := stubToolchain(t, `echo "hookweave_hooks/hooks.go:3:1: undefined: BeforeProcess" >&2
exit 2
`)
	cfg := testConfig(t, bin)
	w := New(cfg, session.NewManager())

	res, err := w.Weave(context.Background(), []string{writeHookFile(t)})
	require.NoError(t, err, "a failing build is surfaced, not raised")
	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, string(res.Log), "undefined: BeforeProcess")
}

func TestWeave_NoHookFiles(t *testing.T) {
	cfg := testConfig(t, "go")
	_, err := New(cfg, session.NewManager()).Weave(context.Background(), nil)
	assert.Error(t, err)
}

func TestWeave_RespectsBusySession(t *testing.T) {
	cfg := testConfig(t, "go")
	mgr := session.NewManager()
	held, err := mgr.Begin(session.KindCapture)
	require.NoError(t, err)
	defer held.End()

	_, err = New(cfg, mgr).Weave(context.Background(), []string{writeHookFile(t)})
	assert.ErrorIs(t, err, session.ErrBusy)
}

func TestRun_ReturnsOutputAndExitCode(t *testing.T) {
	exe := stubToolchain(t, `echo "instrumented run"
echo "on stderr" >&2
exit 3
`)
	cfg := testConfig(t, "go")
	w := New(cfg, session.NewManager())

	res, err := w.Run(context.Background(), exe)
	require.NoError(t, err, "a non-zero exit from the binary is reported, not an error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, string(res.Output), "instrumented run")
	assert.Contains(t, string(res.Output), "on stderr")
}

func TestCompileHook_BuildsContainingDir(t *testing.T) {
	bin := stubToolchain(t, `echo "compiled $PWD"`)
	cfg := testConfig(t, bin)
	w := New(cfg, session.NewManager())

	hookFile := writeHookFile(t)
	res, err := w.CompileHook(context.Background(), hookFile)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, string(res.Log), filepath.Dir(hookFile))
}
