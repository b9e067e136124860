package lobby

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/model"
	"github.com/mcoot/gamehub/internal/services/supervisor"
)

// StartResult describes the outcome of a successful StartRoom
type StartResult struct {
	// AlreadyPlaying is set when the room's server was already running
	AlreadyPlaying bool
	Room           *model.Room
	Server         model.ServerInfo
}

// StartRoom launches a game server for a room. Only the host may start it.
//
// The registry call, the spawn and the readiness wait happen without the
// lock held; a second start of the same room meanwhile fails with
// ErrStartInProgress.
func (c *Controller) StartRoom(ctx context.Context, user, roomID string) (StartResult, error) {
	c.mu.Lock()
	room, err := c.roomLocked(ctx, roomID)
	if err != nil {
		c.mu.Unlock()
		return StartResult{}, err
	}
	if room.Host != user {
		c.mu.Unlock()
		return StartResult{}, model.ErrNotHost
	}
	if room.Status == model.RoomPlaying {
		res := StartResult{AlreadyPlaying: true, Room: room.Clone(), Server: *room.Server}
		c.mu.Unlock()
		return res, nil
	}
	if len(room.Members) == 0 {
		c.mu.Unlock()
		return StartResult{}, model.ErrEmptyRoom
	}
	if len(room.Members) < 2 {
		c.mu.Unlock()
		return StartResult{}, model.ErrNeedTwoPlayers
	}
	if c.starting[roomID] {
		c.mu.Unlock()
		return StartResult{}, model.ErrStartInProgress
	}
	c.starting[roomID] = true
	gameID, version := room.GameID, room.GameVersion
	members := append([]string(nil), room.Members...)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.starting, roomID)
		delete(c.early, roomID)
		c.mu.Unlock()
	}()

	logger := c.logger.With(zap.String("room", roomID), zap.String("game_id", gameID))

	info, err := c.registry.LaunchInfo(ctx, gameID, version)
	if err != nil {
		logger.Warn("launch info unavailable", zap.String("version", version), zap.Error(err))
		var remote *model.RemoteError
		if errors.As(err, &remote) {
			return StartResult{}, remote
		}
		return StartResult{}, fmt.Errorf("%w: %w", model.ErrLaunchFail, err)
	}
	if version == "" {
		if err := c.pinVersion(ctx, roomID, info.Version); err != nil {
			return StartResult{}, err
		}
	}

	if len(members) < info.MinPlayers {
		return StartResult{}, &model.MinPlayersError{Required: info.MinPlayers}
	}

	port := c.ports.Allocate()
	spec := supervisor.NewLaunchSpec(info, supervisor.LaunchParams{
		RoomID:         roomID,
		Host:           c.config.BindHost,
		Port:           port,
		Players:        members,
		DefaultRuntime: c.config.DefaultRuntime,
	})

	pid, err := c.spawner.Start(ctx, spec)
	if err != nil {
		c.metrics.Spawns.WithLabelValues(spawnResult(err)).Inc()
		return StartResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.doc.Rooms[roomID]
	if !ok {
		// Everyone left while the server was starting
		if err := c.spawner.Kill(pid); err != nil {
			logger.Warn("kill orphaned game server", zap.Int("pid", pid), zap.Error(err))
		}
		c.metrics.Spawns.WithLabelValues("room_gone").Inc()
		return StartResult{}, model.ErrNoSuchRoom
	}
	if !c.spawner.IsAlive(pid) {
		// Exited after the readiness window but before the room took it
		exitCode := -1
		if e, ok := c.early[roomID]; ok && e.PID == pid {
			exitCode = e.ExitCode
		}
		logger.Warn("game server gone before start committed", zap.Int("pid", pid), zap.Int("exit_code", exitCode))
		c.metrics.Spawns.WithLabelValues("not_ready").Inc()
		return StartResult{}, &model.NotReadyError{ExitCode: exitCode}
	}

	server := model.ServerInfo{Host: c.config.GameHost, Port: port, PID: pid}
	room.MarkPlaying(server)
	c.updateGaugeLocked()
	c.metrics.Spawns.WithLabelValues("ok").Inc()
	if err := c.persist(ctx); err != nil {
		return StartResult{}, err
	}

	logger.Info("game started", zap.Int("port", port), zap.Int("pid", pid), zap.Strings("players", members))
	return StartResult{Room: room.Clone(), Server: server}, nil
}

// pinVersion records the version a room without one will play
func (c *Controller) pinVersion(ctx context.Context, roomID, version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.doc.Rooms[roomID]
	if !ok || room.GameVersion != "" {
		return nil
	}
	room.GameVersion = version
	return c.persist(ctx)
}

func spawnResult(err error) string {
	var notReady *model.NotReadyError
	switch {
	case errors.As(err, &notReady):
		return "not_ready"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "spawn_fail"
	}
}
