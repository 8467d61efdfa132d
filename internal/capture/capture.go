// Package capture drives the toolchain build with trace flags and persists
// the raw trace artifacts.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"hookweave/internal/action"
	"hookweave/internal/config"
	"hookweave/internal/session"
	"hookweave/internal/workspace"
)

const (
	// LogFileName is the well-known log artifact below the artifact dir.
	LogFileName = "build.log"
	// TraceFileName holds the raw structured trace in structured mode.
	TraceFileName = "build.trace.json"
)

// Result is the outcome of one capture. A non-zero ExitCode is data, not an
// error: a failing compile still emits useful action records up to the
// failure point.
type Result struct {
	Log      []byte
	RawTrace []byte
	ExitCode int
	WorkDir  string
}

// Capturer runs instrumented toolchain builds.
type Capturer struct {
	cfg *config.Config
	mgr *session.Manager
}

func New(cfg *config.Config, mgr *session.Manager) *Capturer {
	return &Capturer{cfg: cfg, mgr: mgr}
}

// Capture blocks on one toolchain build with verbose command echoing and the
// scratch dir preserved, optionally requesting the structured line-delimited
// trace. Combined stdout+stderr is captured verbatim and written to the log
// artifact; the caller decides how severe a non-zero exit is.
func (c *Capturer) Capture(ctx context.Context, structured bool) (*Result, error) {
	sess, err := c.mgr.Begin(session.KindCapture)
	if err != nil {
		return nil, err
	}
	defer sess.End()

	args := []string{"build", "-x"}
	if c.cfg.Toolchain.KeepWork {
		args = append(args, "-work")
	}
	if structured {
		args = append(args, "-json")
	}
	args = append(args, c.cfg.Toolchain.BuildArgs...)

	output, exitCode, err := RunToolchain(ctx, sess, c.cfg.Toolchain.Bin, args, c.cfg.Project.Root)
	if err != nil {
		return nil, err
	}

	res := &Result{Log: output, ExitCode: exitCode}
	if structured {
		res.RawTrace = output
	}
	if dir, err := workspace.Discover(output); err == nil {
		res.WorkDir = dir
		sess.SetWorkDir(dir)
	}

	logPath := filepath.Join(c.cfg.Project.ArtifactDir, LogFileName)
	if err := action.WriteFileAtomic(logPath, output); err != nil {
		return nil, err
	}
	if structured {
		tracePath := filepath.Join(c.cfg.Project.ArtifactDir, TraceFileName)
		if err := action.WriteFileAtomic(tracePath, output); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// RunToolchain invokes one toolchain subprocess in its own process group
// under the given session, capturing combined stdout+stderr. Only spawn
// failures are errors; a non-zero exit is returned as the exit code.
func RunToolchain(ctx context.Context, sess *session.Session, bin string, args []string, dir string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Cancellation signals the whole group via the session; Run keeps the
	// only Wait, and WaitDelay hard-kills stragglers that ignore SIGTERM.
	cmd.Cancel = func() error {
		return sess.Kill()
	}
	cmd.WaitDelay = 5 * time.Second

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	sess.Attach(cmd)
	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return buf.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, 0, fmt.Errorf("failed to run %s: %w", bin, err)
	}
	return buf.Bytes(), 0, nil
}
