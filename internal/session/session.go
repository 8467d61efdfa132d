// Package session enforces the single-flight rule for toolchain invocations.
// The toolchain's scratch work directory and the log artifacts are shared,
// named resources, so at most one capture or weave may be in flight at a time.
package session

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
)

// ErrBusy is returned when a session is requested while another is active.
var ErrBusy = errors.New("a capture or weave session is already active")

// Kind identifies what a session is running.
type Kind string

const (
	KindCapture Kind = "capture"
	KindWeave   Kind = "weave"
	KindRun     Kind = "run"
)

// Manager hands out at most one Session at a time.
type Manager struct {
	mu     sync.Mutex
	active *Session
}

func NewManager() *Manager {
	return &Manager{}
}

// Begin acquires the session slot. It fails fast with ErrBusy instead of
// queueing when another session is outstanding.
func (m *Manager) Begin(kind Kind) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, fmt.Errorf("%w (current: %s)", ErrBusy, m.active.kind)
	}

	s := &Session{kind: kind, manager: m}
	m.active = s
	return s, nil
}

// Active returns the kind of the in-flight session, if any.
func (m *Manager) Active() (Kind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", false
	}
	return m.active.kind, true
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}

// Session is the handle bound to one toolchain invocation.
type Session struct {
	kind    Kind
	manager *Manager

	mu      sync.RWMutex
	cmd     *exec.Cmd
	workDir string
	ended   bool
}

// Kind returns what this session is running.
func (s *Session) Kind() Kind {
	return s.kind
}

// Attach records the in-flight subprocess so Kill can reach it.
func (s *Session) Attach(cmd *exec.Cmd) {
	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()
}

// SetWorkDir records the toolchain scratch directory discovered for this run.
func (s *Session) SetWorkDir(dir string) {
	s.mu.Lock()
	s.workDir = dir
	s.mu.Unlock()
}

// WorkDir returns the toolchain scratch directory, if discovered.
func (s *Session) WorkDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workDir
}

// End releases the session slot. Safe to call more than once.
func (s *Session) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.cmd = nil
	s.mu.Unlock()

	s.manager.release(s)
}

// Kill signals the session's subprocess group to terminate. It never waits:
// reaping stays with the Run call that spawned the process, which escalates
// to a hard kill on its own wait delay.
func (s *Session) Kill() error {
	s.mu.RLock()
	cmd := s.cmd
	s.mu.RUnlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		// No group to signal; fall back to the main process.
		if killErr := cmd.Process.Kill(); killErr != nil {
			return fmt.Errorf("failed to kill process %d: %w", pid, killErr)
		}
	}
	return nil
}
