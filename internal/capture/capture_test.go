package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hookweave/internal/config"
	"hookweave/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubToolchain writes a shell script standing in for the real toolchain so
// capture behavior is testable without driving an actual build.
func stubToolchain(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakego")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func testConfig(t *testing.T, bin string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Toolchain.Bin = bin
	cfg.Project.Root = t.TempDir()
	cfg.Project.ArtifactDir = filepath.Join(t.TempDir(), "artifacts")
	return cfg
}

func TestCapture_WritesLogArtifact(t *testing.T) {
	bin := stubToolchain(t, `echo "WORK=/tmp/go-build42"
echo "compile pkg/a"
`)
	cfg := testConfig(t, bin)
	c := New(cfg, session.NewManager())

	res, err := c.Capture(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, string(res.Log), "compile pkg/a")
	assert.Equal(t, "/tmp/go-build42", res.WorkDir)

	data, err := os.ReadFile(filepath.Join(cfg.Project.ArtifactDir, LogFileName))
	require.NoError(t, err)
	assert.Equal(t, res.Log, data)
}

func TestCapture_NonZeroExitStillCaptures(t *testing.T) {
	bin := stubToolchain(t, `echo "compile pkg/a"
echo "pkg/a/main.go:4:2: undefined: frob" >&2
exit 1
`)
	cfg := testConfig(t, bin)
	c := New(cfg, session.NewManager())

	res, err := c.Capture(context.Background(), false)
	require.NoError(t, err, "a failing build is data, not a capture error")

	assert.Equal(t, 1, res.ExitCode)
	assert.NotEmpty(t, res.Log)
	assert.Contains(t, string(res.Log), "undefined: frob")
}

func TestCapture_StructuredWritesRawTrace(t *testing.T) {
	bin := stubToolchain(t, `echo '{"ImportPath":"pkg/a","Output":"compile pkg/a\n"}'`)
	cfg := testConfig(t, bin)
	c := New(cfg, session.NewManager())

	res, err := c.Capture(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, res.Log, res.RawTrace)

	data, err := os.ReadFile(filepath.Join(cfg.Project.ArtifactDir, TraceFileName))
	require.NoError(t, err)
	assert.Equal(t, res.RawTrace, data)
}

func TestCapture_CombinesStdoutAndStderr(t *testing.T) {
	bin := stubToolchain(t, `echo "to stdout"
echo "to stderr" >&2
`)
	cfg := testConfig(t, bin)
	c := New(cfg, session.NewManager())

	res, err := c.Capture(context.Background(), false)
	require.NoError(t, err)
	assert.Contains(t, string(res.Log), "to stdout")
	assert.Contains(t, string(res.Log), "to stderr")
}

func TestCapture_RespectsBusySession(t *testing.T) {
	bin := stubToolchain(t, "exit 0\n")
	cfg := testConfig(t, bin)
	mgr := session.NewManager()

	held, err := mgr.Begin(session.KindWeave)
	require.NoError(t, err)
	defer held.End()

	_, err = New(cfg, mgr).Capture(context.Background(), false)
	assert.ErrorIs(t, err, session.ErrBusy)
}

func TestCapture_MissingToolchainBinary(t *testing.T) {
	cfg := testConfig(t, "/nonexistent/toolchain")
	_, err := New(cfg, session.NewManager()).Capture(context.Background(), false)
	assert.Error(t, err)
}

func TestCapture_ReleasesSessionAfterRun(t *testing.T) {
	bin := stubToolchain(t, "exit 0\n")
	cfg := testConfig(t, bin)
	mgr := session.NewManager()
	c := New(cfg, mgr)

	_, err := c.Capture(context.Background(), false)
	require.NoError(t, err)

	// The slot is free again for the next stage.
	s, err := mgr.Begin(session.KindWeave)
	require.NoError(t, err)
	s.End()
}

func TestCapture_CancellationStopsBuild(t *testing.T) {
	bin := stubToolchain(t, `trap "exit 0" TERM
sleep 30
`)
	cfg := testConfig(t, bin)
	mgr := session.NewManager()
	c := New(cfg, mgr)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Capture(ctx, false)
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Less(t, elapsed, 10*time.Second)

	// The session must be released even after a cancelled build.
	sess, err := mgr.Begin(session.KindCapture)
	require.NoError(t, err)
	sess.End()
}
