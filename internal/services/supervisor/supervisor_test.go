package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamehub/internal/model"
	"github.com/mcoot/gamehub/internal/testutil"
)

type SupervisorSuite struct {
	suite.Suite
	supervisor *Supervisor
	ctx        context.Context
}

func TestSupervisorSuite(t *testing.T) {
	suite.Run(t, new(SupervisorSuite))
}

func (s *SupervisorSuite) SetupTest() {
	s.supervisor = New(200*time.Millisecond, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *SupervisorSuite) TearDownTest() {
	s.supervisor.Close()
}

func shell(room, script string) LaunchSpec {
	return LaunchSpec{RoomID: room, Command: "/bin/sh", Args: []string{"-c", script}}
}

func (s *SupervisorSuite) nextExit() Exit {
	select {
	case e := <-s.supervisor.Exits():
		return e
	case <-time.After(5 * time.Second):
		s.FailNow("no exit reported")
		return Exit{}
	}
}

func (s *SupervisorSuite) TestStartReturnsRunningProcess() {
	pid, err := s.supervisor.Start(s.ctx, shell("r1", "sleep 5"))
	s.Require().NoError(err)
	s.Positive(pid)
	s.True(s.supervisor.IsAlive(pid))
	s.Equal(1, s.supervisor.Running())

	s.Require().NoError(s.supervisor.Kill(pid))
	exit := s.nextExit()
	s.Equal("r1", exit.RoomID)
	s.Equal(pid, exit.PID)
	s.False(s.supervisor.IsAlive(pid))
}

func (s *SupervisorSuite) TestEarlyExitIsNotReady() {
	_, err := s.supervisor.Start(s.ctx, shell("r1", "exit 3"))

	var notReady *model.NotReadyError
	s.Require().ErrorAs(err, &notReady)
	s.Equal(3, notReady.ExitCode)

	exit := s.nextExit()
	s.Equal(3, exit.ExitCode)
	s.Equal(0, s.supervisor.Running())
}

func (s *SupervisorSuite) TestExitAfterReadinessIsReported() {
	pid, err := s.supervisor.Start(s.ctx, shell("r2", "sleep 0.6; exit 7"))
	s.Require().NoError(err)

	exit := s.nextExit()
	s.Equal(Exit{RoomID: "r2", PID: pid, ExitCode: 7}, exit)
	s.False(s.supervisor.IsAlive(pid))
}

func (s *SupervisorSuite) TestSpawnFailure() {
	_, err := s.supervisor.Start(s.ctx, LaunchSpec{RoomID: "r1", Command: "/definitely/not/here"})
	var spawnErr *model.SpawnError
	s.ErrorAs(err, &spawnErr)
}

func (s *SupervisorSuite) TestCancelledStartKillsProcess() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.supervisor.Start(ctx, shell("r1", "sleep 5"))
	s.ErrorIs(err, context.Canceled)
	s.nextExit()
	s.Equal(0, s.supervisor.Running())
}

func (s *SupervisorSuite) TestForeignPidsAreNeverAlive() {
	s.False(s.supervisor.IsAlive(os.Getpid()))
	s.False(s.supervisor.IsAlive(0))
	s.Error(s.supervisor.Kill(os.Getpid()))
}

func (s *SupervisorSuite) TestWorkingDirectoryIsBundlePath() {
	dir := s.T().TempDir()
	spec := shell("r1", "pwd > where; sleep 5")
	spec.Dir = dir

	pid, err := s.supervisor.Start(s.ctx, spec)
	s.Require().NoError(err)
	defer func() { _ = s.supervisor.Kill(pid) }()

	s.Eventually(func() bool {
		raw, err := os.ReadFile(filepath.Join(dir, "where"))
		if err != nil {
			return false
		}
		resolved, _ := filepath.EvalSymlinks(dir)
		got := string(raw)
		return got == dir+"\n" || got == resolved+"\n"
	}, 2*time.Second, 20*time.Millisecond)
}
