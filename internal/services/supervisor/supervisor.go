// Package supervisor starts game server processes and reports their exits.
//
// Only processes started by this Supervisor are ever considered alive; a pid
// recorded by an earlier run of the program is treated as dead.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/model"
)

// DefaultReadyDelay is how long a new process must survive to count as started
const DefaultReadyDelay = 500 * time.Millisecond

// Exit reports the termination of a supervised process
type Exit struct {
	RoomID   string
	PID      int
	ExitCode int
}

type child struct {
	cmd      *exec.Cmd
	roomID   string
	done     chan struct{}
	exitCode int
}

// Supervisor owns the game server processes of one orchestrator run
type Supervisor struct {
	readyDelay time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	children map[int]*child

	exits chan Exit
	stop  chan struct{}
	once  sync.Once
}

// New creates a Supervisor. A process that exits within readyDelay of being
// started is reported as not ready.
func New(readyDelay time.Duration, logger *zap.Logger) *Supervisor {
	if readyDelay <= 0 {
		readyDelay = DefaultReadyDelay
	}
	return &Supervisor{
		readyDelay: readyDelay,
		logger:     logger.Named("supervisor"),
		children:   make(map[int]*child),
		exits:      make(chan Exit, 64),
		stop:       make(chan struct{}),
	}
}

// Start launches spec and waits out the readiness window. It returns the pid
// of a process that is still running afterwards. Every started process,
// ready or not, is eventually reported on Exits.
func (s *Supervisor) Start(ctx context.Context, spec LaunchSpec) (int, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)

	if err := cmd.Start(); err != nil {
		s.logger.Warn("spawn failed", zap.String("room", spec.RoomID), zap.String("command", spec.Command), zap.Error(err))
		return 0, &model.SpawnError{Err: err}
	}

	pid := cmd.Process.Pid
	c := &child{cmd: cmd, roomID: spec.RoomID, done: make(chan struct{})}

	s.mu.Lock()
	s.children[pid] = c
	s.mu.Unlock()

	logger := s.logger.With(zap.String("room", spec.RoomID), zap.Int("pid", pid))
	logger.Info("game server spawned", zap.String("command", spec.Command), zap.Strings("args", spec.Args))

	go s.wait(c, pid, logger)

	timer := time.NewTimer(s.readyDelay)
	defer timer.Stop()

	select {
	case <-c.done:
		logger.Warn("game server exited during readiness window", zap.Int("exit_code", c.exitCode))
		return 0, &model.NotReadyError{ExitCode: c.exitCode}
	case <-ctx.Done():
		_ = s.Kill(pid)
		return 0, ctx.Err()
	case <-timer.C:
		return pid, nil
	}
}

func (s *Supervisor) wait(c *child, pid int, logger *zap.Logger) {
	_ = c.cmd.Wait()
	c.exitCode = c.cmd.ProcessState.ExitCode()

	s.mu.Lock()
	delete(s.children, pid)
	s.mu.Unlock()
	close(c.done)

	logger.Info("game server exited", zap.Int("exit_code", c.exitCode))

	select {
	case s.exits <- Exit{RoomID: c.roomID, PID: pid, ExitCode: c.exitCode}:
	case <-s.stop:
	}
}

// IsAlive reports whether pid is a running process started by this Supervisor
func (s *Supervisor) IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.children[pid]
	return ok
}

// Kill terminates a supervised process. Its exit is still reported.
func (s *Supervisor) Kill(pid int) error {
	s.mu.Lock()
	c, ok := s.children[pid]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("pid %d is not supervised", pid)
	}
	if err := c.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}

// Exits delivers one Exit per started process
func (s *Supervisor) Exits() <-chan Exit {
	return s.exits
}

// Running returns the number of live supervised processes
func (s *Supervisor) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.children)
}

// Close stops exit reporting. Running processes are left to finish on their
// own.
func (s *Supervisor) Close() {
	s.once.Do(func() { close(s.stop) })
}
