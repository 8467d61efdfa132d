// Package weave re-drives the toolchain build with the generated hook module
// in scope and runs the instrumented binary.
//
// Weaving does not rewrite call sites. Each instrumented call site is
// arranged, at the call site itself, to resolve to the hook module's
// Before/After functions through a go:linkname directive; the weaver's job is
// to stage the right source inputs, invoke the toolchain and surface the
// outcome faithfully.
package weave

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"hookweave/internal/capture"
	"hookweave/internal/config"
	"hookweave/internal/session"
)

// StageDirName is the package directory created inside the target module to
// hold staged hook files during a weave.
const StageDirName = "hookweave_hooks"

// BuildResult is the outcome of one weave. ExitCode carries the toolchain's
// exit status; the full build output is always present for diagnostics.
type BuildResult struct {
	Log      []byte
	ExitCode int
}

// RunResult is the outcome of running an instrumented binary. Output and
// ExitCode are returned unmodified; a non-zero exit is reported, never
// swallowed.
type RunResult struct {
	Output   []byte
	ExitCode int
}

// Weaver assembles instrumented builds.
type Weaver struct {
	cfg *config.Config
	mgr *session.Manager
}

func New(cfg *config.Config, mgr *session.Manager) *Weaver {
	return &Weaver{cfg: cfg, mgr: mgr}
}

// Weave stages the hook module files into the target module and re-invokes
// the toolchain build over target plus hooks. The staged copies are removed
// again after the build; the originals under the artifact dir remain the
// source of truth.
func (w *Weaver) Weave(ctx context.Context, hookFiles []string) (*BuildResult, error) {
	if len(hookFiles) == 0 {
		return nil, fmt.Errorf("no hook module files to weave")
	}

	sess, err := w.mgr.Begin(session.KindWeave)
	if err != nil {
		return nil, err
	}
	defer sess.End()

	stageDir := filepath.Join(w.cfg.Project.Root, StageDirName)
	cleanup, err := stage(stageDir, hookFiles)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	args := []string{"build"}
	args = append(args, w.cfg.Toolchain.BuildArgs...)
	args = append(args, "./...")

	output, exitCode, err := capture.RunToolchain(ctx, sess, w.cfg.Toolchain.Bin, args, w.cfg.Project.Root)
	if err != nil {
		return nil, err
	}
	return &BuildResult{Log: output, ExitCode: exitCode}, nil
}

// Run executes an instrumented binary and reports its combined output and
// exit code unmodified.
func (w *Weaver) Run(ctx context.Context, executable string) (*RunResult, error) {
	sess, err := w.mgr.Begin(session.KindRun)
	if err != nil {
		return nil, err
	}
	defer sess.End()

	abs, err := filepath.Abs(executable)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	output, exitCode, err := capture.RunToolchain(ctx, sess, abs, nil, w.cfg.Project.Root)
	if err != nil {
		return nil, err
	}
	return &RunResult{Output: output, ExitCode: exitCode}, nil
}

// stage copies the hook files into a package directory inside the target
// module and returns a cleanup that removes the copies.
func stage(stageDir string, hookFiles []string) (func(), error) {
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stage dir %s: %w", stageDir, err)
	}

	cleanup := func() {
		if err := os.RemoveAll(stageDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to clean stage dir %s: %v\n", stageDir, err)
		}
	}

	for _, src := range hookFiles {
		data, err := os.ReadFile(src)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to read hook file %s: %w", src, err)
		}
		dst := filepath.Join(stageDir, filepath.Base(src))
		if err := os.WriteFile(dst, data, 0644); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to stage hook file %s: %w", dst, err)
		}
	}
	return cleanup, nil
}

// CompileHook syntax-checks a single hook file by invoking the toolchain
// build over its containing directory, without staging it into the target.
func (w *Weaver) CompileHook(ctx context.Context, hookFile string) (*BuildResult, error) {
	sess, err := w.mgr.Begin(session.KindWeave)
	if err != nil {
		return nil, err
	}
	defer sess.End()

	dir := filepath.Dir(hookFile)
	output, exitCode, err := capture.RunToolchain(ctx, sess, w.cfg.Toolchain.Bin, []string{"build", "."}, dir)
	if err != nil {
		return nil, err
	}
	return &BuildResult{Log: output, ExitCode: exitCode}, nil
}
