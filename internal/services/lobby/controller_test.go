package lobby

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamehub/internal/dependencies/mocks"
	"github.com/mcoot/gamehub/internal/metrics"
	"github.com/mcoot/gamehub/internal/model"
	"github.com/mcoot/gamehub/internal/password"
	"github.com/mcoot/gamehub/internal/services/ports"
	"github.com/mcoot/gamehub/internal/services/supervisor"
	"github.com/mcoot/gamehub/internal/storage/memory"
	"github.com/mcoot/gamehub/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	store      *memory.Storage
	disk       *failingStore
	registry   *fakeRegistry
	spawner    *fakeSpawner
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	metrics    *metrics.Metrics
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.disk = &failingStore{DocumentStore: s.store}
	s.registry = newFakeRegistry()
	s.registry.addGame("g1", "v1", 2, 2)
	s.spawner = newFakeSpawner()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.metrics = metrics.New("lobby")
	s.controller = s.newController()
}

func (s *ControllerSuite) newController() *Controller {
	alloc, err := ports.New(19100, 19200, testutil.NopLogger())
	s.Require().NoError(err)

	c, err := NewController(s.ctx, Dependencies{
		Store:    s.disk,
		Registry: s.registry,
		Spawner:  s.spawner,
		Ports:    alloc,
		Hasher:   password.SHA256{},
		Clock:    s.clock,
		Random:   s.random,
		Metrics:  s.metrics,
	}, Config{GameHost: "games.example", BindHost: "0.0.0.0", DefaultRuntime: "python3"}, testutil.NopLogger())
	s.Require().NoError(err)
	return c
}

// roomWith creates r1 for g1 hosted by the first member, the rest joining
func (s *ControllerSuite) roomWith(members ...string) {
	_, err := s.controller.CreateRoom(s.ctx, members[0], "r1", "g1")
	s.Require().NoError(err)
	for _, m := range members[1:] {
		_, err := s.controller.JoinRoom(s.ctx, m, "r1")
		s.Require().NoError(err)
	}
}

func (s *ControllerSuite) startedRoom() StartResult {
	s.roomWith("alice", "bob")
	res, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	s.Require().NoError(err)
	return res
}

// Players

func (s *ControllerSuite) TestRegisterAndLogin() {
	s.Require().NoError(s.controller.Register(s.ctx, "alice", "pw"))
	s.ErrorIs(s.controller.Register(s.ctx, "alice", "pw"), model.ErrUserExists)

	s.Require().NoError(s.controller.Login(s.ctx, "alice", "pw"))
	p, ok := s.controller.Player("alice")
	s.Require().True(ok)
	s.True(p.Online)
	s.Equal(s.clock.Now(), p.LastLoginAt)

	s.Require().NoError(s.controller.Logout(s.ctx, "alice"))
	p, _ = s.controller.Player("alice")
	s.False(p.Online)
}

func (s *ControllerSuite) TestPlayerStaysOnlineUntilLastLogout() {
	s.Require().NoError(s.controller.Register(s.ctx, "alice", "pw"))
	s.Require().NoError(s.controller.Login(s.ctx, "alice", "pw"))
	s.Require().NoError(s.controller.Login(s.ctx, "alice", "pw"))

	s.Require().NoError(s.controller.Logout(s.ctx, "alice"))
	p, _ := s.controller.Player("alice")
	s.True(p.Online)

	s.Require().NoError(s.controller.Logout(s.ctx, "alice"))
	p, _ = s.controller.Player("alice")
	s.False(p.Online)
}

func (s *ControllerSuite) TestLoginFailuresAreIndistinguishable() {
	s.Require().NoError(s.controller.Register(s.ctx, "alice", "pw"))
	s.ErrorIs(s.controller.Login(s.ctx, "alice", "wrong"), model.ErrAuthFailed)
	s.ErrorIs(s.controller.Login(s.ctx, "ghost", "pw"), model.ErrAuthFailed)
}

func (s *ControllerSuite) TestListPlayersSorted() {
	for _, u := range []string{"carol", "alice", "bob"} {
		s.Require().NoError(s.controller.Register(s.ctx, u, "pw"))
	}
	s.Require().NoError(s.controller.Login(s.ctx, "bob", "pw"))

	players := s.controller.ListPlayers()
	s.Require().Len(players, 3)
	s.Equal("alice", players[0].Username)
	s.Equal("bob", players[1].Username)
	s.True(players[1].Online)
}

func (s *ControllerSuite) TestRecordDownload() {
	s.Require().NoError(s.controller.Register(s.ctx, "alice", "pw"))
	s.Require().NoError(s.controller.RecordDownload(s.ctx, "alice", "g1", "v1"))

	p, _ := s.controller.Player("alice")
	s.Equal(map[string]string{"g1": "v1"}, p.Downloads)

	s.ErrorIs(s.controller.RecordDownload(s.ctx, "ghost", "g1", "v1"), model.ErrAuthRequired)
}

func (s *ControllerSuite) TestStartupReconcilesPreviousRun() {
	s.Require().NoError(s.controller.Register(s.ctx, "alice", "pw"))
	s.Require().NoError(s.controller.Login(s.ctx, "alice", "pw"))
	s.startedRoom()

	// A new run has a fresh supervisor that knows none of the old pids
	s.spawner = newFakeSpawner()
	restarted := s.newController()

	p, _ := restarted.Player("alice")
	s.False(p.Online)
	room, err := restarted.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.RoomIdle, room.Status)
	s.Nil(room.Server)
	s.Equal(0.0, prom.ToFloat64(s.metrics.RoomsPlay))
}

// Rooms

func (s *ControllerSuite) TestCreateRoomSnapshotsGame() {
	room, err := s.controller.CreateRoom(s.ctx, "alice", "r1", "g1")
	s.Require().NoError(err)

	s.Equal("alice", room.Host)
	s.Equal([]string{"alice"}, room.Members)
	s.Equal("v1", room.GameVersion)
	s.Equal(2, room.MaxPlayers)
	s.Equal(model.RoomIdle, room.Status)
	s.Nil(room.Server)

	// A later upload does not move the room's version
	s.registry.addGame("g1", "v2", 2, 2)
	info, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal("v1", info.GameVersion)
}

func (s *ControllerSuite) TestCreateRoomGeneratesID() {
	s.random.QueueString("abc234")
	room, err := s.controller.CreateRoom(s.ctx, "alice", "", "g1")
	s.Require().NoError(err)
	s.Equal("room-abc234", room.ID)
}

func (s *ControllerSuite) TestCreateRoomFailures() {
	_, err := s.controller.CreateRoom(s.ctx, "alice", "r1", "nope")
	s.ErrorIs(err, model.ErrNoSuchGame)

	_, err = s.controller.CreateRoom(s.ctx, "alice", "r1", "g1")
	s.Require().NoError(err)
	_, err = s.controller.CreateRoom(s.ctx, "bob", "r1", "g1")
	s.ErrorIs(err, model.ErrRoomExists)
}

func (s *ControllerSuite) TestJoinRoomIsIdempotent() {
	s.roomWith("alice", "bob")
	room, err := s.controller.JoinRoom(s.ctx, "bob", "r1")
	s.Require().NoError(err)
	s.Equal([]string{"alice", "bob"}, room.Members)
}

func (s *ControllerSuite) TestJoinFullRoomAlwaysFails() {
	s.roomWith("alice", "bob")

	for _, u := range []string{"carol", "dave", "carol"} {
		_, err := s.controller.JoinRoom(s.ctx, u, "r1")
		s.ErrorIs(err, model.ErrRoomFull)
	}
	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Len(room.Members, 2)
}

func (s *ControllerSuite) TestConcurrentJoinsNeverExceedMaxPlayers() {
	s.registry.addGame("big", "v1", 2, 4)
	_, err := s.controller.CreateRoom(s.ctx, "host", "r1", "big")
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for _, u := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.controller.JoinRoom(s.ctx, u, "r1")
		}()
	}
	wg.Wait()

	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Len(room.Members, 4)
}

func (s *ControllerSuite) TestJoinPlayingRoomFails() {
	s.startedRoom()
	_, err := s.controller.JoinRoom(s.ctx, "carol", "r1")
	s.ErrorIs(err, model.ErrInGame)
}

func (s *ControllerSuite) TestUnknownRoom() {
	_, err := s.controller.JoinRoom(s.ctx, "alice", "nope")
	s.ErrorIs(err, model.ErrNoSuchRoom)
	s.ErrorIs(s.controller.LeaveRoom(s.ctx, "alice", "nope"), model.ErrNoSuchRoom)
	_, err = s.controller.StartRoom(s.ctx, "alice", "nope")
	s.ErrorIs(err, model.ErrNoSuchRoom)
	_, err = s.controller.RoomInfo(s.ctx, "nope")
	s.ErrorIs(err, model.ErrNoSuchRoom)
}

func (s *ControllerSuite) TestLeaveRoomReassignsHostThenDeletes() {
	s.roomWith("alice", "bob")

	s.Require().NoError(s.controller.LeaveRoom(s.ctx, "alice", "r1"))
	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal("bob", room.Host)
	s.Equal([]string{"bob"}, room.Members)

	s.Require().NoError(s.controller.LeaveRoom(s.ctx, "bob", "r1"))
	_, err = s.controller.RoomInfo(s.ctx, "r1")
	s.ErrorIs(err, model.ErrNoSuchRoom)
}

func (s *ControllerSuite) TestLeaveRoomByNonMemberIsNoop() {
	s.roomWith("alice")
	s.Require().NoError(s.controller.LeaveRoom(s.ctx, "mallory", "r1"))
	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal([]string{"alice"}, room.Members)
}

func (s *ControllerSuite) TestListRoomsSortedAndNormalized() {
	res := s.startedRoom()
	_, err := s.controller.CreateRoom(s.ctx, "carol", "a-room", "g1")
	s.Require().NoError(err)

	s.spawner.die(res.Server.PID)

	rooms, err := s.controller.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rooms, 2)
	s.Equal("a-room", rooms[0].ID)
	s.Equal("r1", rooms[1].ID)
	s.Equal(model.RoomIdle, rooms[1].Status)
	s.Nil(rooms[1].Server)
}

func (s *ControllerSuite) TestListRoomsReportsPersistFailure() {
	res := s.startedRoom()
	s.spawner.die(res.Server.PID)
	s.disk.setFailing(true)

	_, err := s.controller.ListRooms(s.ctx)
	s.ErrorIs(err, errDiskFull)
}

// Starting

func (s *ControllerSuite) TestStartRoomLaunchesServer() {
	res := s.startedRoom()

	s.False(res.AlreadyPlaying)
	s.Equal(model.ServerInfo{Host: "games.example", Port: 19100, PID: 1001}, res.Server)
	s.Equal(model.RoomPlaying, res.Room.Status)

	spec := s.spawner.lastSpec()
	s.Equal("python3", spec.Command)
	s.Equal("/bundles/g1/v1", spec.Dir)
	s.Equal([]string{"server.py", "--host", "0.0.0.0", "--port", "19100", "--room", "r1", "--players", "alice,bob"}, spec.Args)

	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.RoomPlaying, room.Status)
	s.Equal(&res.Server, room.Server)
	s.Equal(1.0, prom.ToFloat64(s.metrics.RoomsPlay))
	s.Equal(1.0, prom.ToFloat64(s.metrics.Spawns.WithLabelValues("ok")))
}

func (s *ControllerSuite) TestStartRoomTwiceIsIdempotent() {
	first := s.startedRoom()
	second, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	s.Require().NoError(err)
	s.True(second.AlreadyPlaying)
	s.Equal(first.Server, second.Server)
	s.Len(s.spawner.specs, 1)
}

func (s *ControllerSuite) TestStartRoomAfterCrashRestarts() {
	first := s.startedRoom()
	s.spawner.die(first.Server.PID)

	second, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	s.Require().NoError(err)
	s.False(second.AlreadyPlaying)
	s.NotEqual(first.Server.PID, second.Server.PID)
	s.Equal(19101, second.Server.Port)
}

func (s *ControllerSuite) TestStartRoomPreconditions() {
	s.roomWith("alice")
	_, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	s.ErrorIs(err, model.ErrNeedTwoPlayers)

	_, err = s.controller.JoinRoom(s.ctx, "bob", "r1")
	s.Require().NoError(err)
	_, err = s.controller.StartRoom(s.ctx, "bob", "r1")
	s.ErrorIs(err, model.ErrNotHost)
	s.Empty(s.spawner.specs)
}

func (s *ControllerSuite) TestStartRoomNeedsGameMinimum() {
	s.registry.addGame("trio", "v1", 3, 4)
	_, err := s.controller.CreateRoom(s.ctx, "alice", "r1", "trio")
	s.Require().NoError(err)
	_, err = s.controller.JoinRoom(s.ctx, "bob", "r1")
	s.Require().NoError(err)

	_, err = s.controller.StartRoom(s.ctx, "alice", "r1")
	var minErr *model.MinPlayersError
	s.Require().ErrorAs(err, &minErr)
	s.Equal(3, minErr.Required)
}

func (s *ControllerSuite) TestStartRoomSpawnFailureLeavesRoomIdle() {
	s.roomWith("alice", "bob")
	s.spawner.err = &model.NotReadyError{ExitCode: 1}

	_, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	var notReady *model.NotReadyError
	s.Require().ErrorAs(err, &notReady)

	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.RoomIdle, room.Status)
	s.Equal(1.0, prom.ToFloat64(s.metrics.Spawns.WithLabelValues("not_ready")))

	// The start guard is released after a failure
	s.spawner.err = nil
	_, err = s.controller.StartRoom(s.ctx, "alice", "r1")
	s.NoError(err)
}

func (s *ControllerSuite) TestStartRoomForwardsRegistryCode() {
	s.roomWith("alice", "bob")
	s.registry.addGame("g1", "v2", 2, 2) // v1 no longer resolvable by the fake

	_, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	var remote *model.RemoteError
	s.Require().ErrorAs(err, &remote)
	s.Equal("NO_SUCH_VERSION", remote.Code)
}

func (s *ControllerSuite) TestStartRoomRegistryUnreachable() {
	s.roomWith("alice", "bob")
	s.registry.err = errors.New("connection refused")

	_, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	s.ErrorIs(err, model.ErrLaunchFail)
}

func (s *ControllerSuite) TestStartRoomPinsLatestWhenUnversioned() {
	s.registry.addGame("fresh", "", 2, 2)
	_, err := s.controller.CreateRoom(s.ctx, "alice", "r1", "fresh")
	s.Require().NoError(err)
	_, err = s.controller.JoinRoom(s.ctx, "bob", "r1")
	s.Require().NoError(err)

	s.registry.addGame("fresh", "v3", 2, 2)
	_, err = s.controller.StartRoom(s.ctx, "alice", "r1")
	s.Require().NoError(err)

	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal("v3", room.GameVersion)
	s.Equal([]string{"fresh@"}, s.registry.lookups)
}

func (s *ControllerSuite) TestStartRoomFailsWhenPinCannotBeSaved() {
	s.registry.addGame("fresh", "", 2, 2)
	_, err := s.controller.CreateRoom(s.ctx, "alice", "r1", "fresh")
	s.Require().NoError(err)
	_, err = s.controller.JoinRoom(s.ctx, "bob", "r1")
	s.Require().NoError(err)

	s.registry.addGame("fresh", "v3", 2, 2)
	s.disk.setFailing(true)
	_, err = s.controller.StartRoom(s.ctx, "alice", "r1")
	s.ErrorIs(err, errDiskFull)
	s.Empty(s.spawner.specs)
}

func (s *ControllerSuite) TestConcurrentStartIsRejected() {
	s.roomWith("alice", "bob")
	gate := make(chan struct{})
	s.spawner.gate = gate

	done := make(chan error, 1)
	go func() {
		_, err := s.controller.StartRoom(s.ctx, "alice", "r1")
		done <- err
	}()
	<-s.spawner.entered

	_, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	s.ErrorIs(err, model.ErrStartInProgress)

	close(gate)
	s.NoError(<-done)
}

func (s *ControllerSuite) TestRoomDeletedDuringStartKillsServer() {
	s.roomWith("alice", "bob")
	gate := make(chan struct{})
	s.spawner.gate = gate

	done := make(chan error, 1)
	go func() {
		_, err := s.controller.StartRoom(s.ctx, "alice", "r1")
		done <- err
	}()
	<-s.spawner.entered

	s.Require().NoError(s.controller.LeaveRoom(s.ctx, "alice", "r1"))
	s.Require().NoError(s.controller.LeaveRoom(s.ctx, "bob", "r1"))
	close(gate)

	s.ErrorIs(<-done, model.ErrNoSuchRoom)
	s.Equal([]int{1001}, s.spawner.killed)
}

// Exit handling

func (s *ControllerSuite) TestExitResetsRoom() {
	res := s.startedRoom()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() { _ = s.controller.Run(ctx) }()

	s.spawner.exit("r1", res.Server.PID, 0)

	s.Eventually(func() bool {
		room, err := s.controller.RoomInfo(s.ctx, "r1")
		return err == nil && room.Status == model.RoomIdle && room.Server == nil
	}, time.Second, 10*time.Millisecond)
	s.Eventually(func() bool {
		return prom.ToFloat64(s.metrics.RoomsPlay) == 0
	}, time.Second, 10*time.Millisecond)
}

func (s *ControllerSuite) TestExitBeforeStartCommitsLeavesRoomIdle() {
	s.roomWith("alice", "bob")
	s.spawner.started = func(_ supervisor.LaunchSpec, pid int) {
		s.spawner.die(pid)
		s.controller.handleExit(s.ctx, supervisor.Exit{RoomID: "r1", PID: pid, ExitCode: 3})
	}

	_, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	var notReady *model.NotReadyError
	s.Require().ErrorAs(err, &notReady)
	s.Equal(3, notReady.ExitCode)

	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.RoomIdle, room.Status)
	s.Nil(room.Server)
	s.Equal(0.0, prom.ToFloat64(s.metrics.RoomsPlay))
	s.Equal(1.0, prom.ToFloat64(s.metrics.Spawns.WithLabelValues("not_ready")))

	var saved document
	s.Require().NoError(s.store.Load(s.ctx, DocumentName, &saved))
	s.Equal(model.RoomIdle, saved.Rooms["r1"].Status)

	// The next start succeeds once the server stays up
	s.spawner.started = nil
	res, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	s.Require().NoError(err)
	s.Equal(model.RoomPlaying, res.Room.Status)
}

func (s *ControllerSuite) TestStaleExitIsIgnored() {
	first := s.startedRoom()
	s.spawner.die(first.Server.PID)
	second, err := s.controller.StartRoom(s.ctx, "alice", "r1")
	s.Require().NoError(err)

	// Apply the late exit of the first server directly
	s.controller.handleExit(s.ctx, supervisorExit("r1", first.Server.PID))

	room, err := s.controller.RoomInfo(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.RoomPlaying, room.Status)
	s.Equal(second.Server.PID, room.Server.PID)
}
