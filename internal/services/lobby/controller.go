// Package lobby implements the orchestrator: player accounts, rooms and the
// game servers started for them.
//
// Player and room state lives in one document guarded by one mutex and is
// rewritten in full after every mutation. Game server processes are owned by
// a Spawner; their exits arrive on a channel consumed by Run, which is the
// only place a room is reset because its process ended.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/dependencies/clock"
	"github.com/mcoot/gamehub/internal/dependencies/random"
	"github.com/mcoot/gamehub/internal/metrics"
	"github.com/mcoot/gamehub/internal/model"
	"github.com/mcoot/gamehub/internal/password"
	"github.com/mcoot/gamehub/internal/services/supervisor"
	"github.com/mcoot/gamehub/internal/storage"
)

const (
	// DocumentName is the name the lobby document is stored under
	DocumentName = "lobby"
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
)

// Registry is the read-only view of the store registry the orchestrator needs
type Registry interface {
	GameDetail(ctx context.Context, gameID string) (response.GameDetail, error)
	LaunchInfo(ctx context.Context, gameID, version string) (model.LaunchInfo, error)
}

// Spawner starts game server processes and reports their exits
type Spawner interface {
	Start(ctx context.Context, spec supervisor.LaunchSpec) (int, error)
	IsAlive(pid int) bool
	Kill(pid int) error
	Exits() <-chan supervisor.Exit
}

// PortAllocator hands out ports for game servers
type PortAllocator interface {
	Allocate() int
}

// Config holds configuration for the orchestrator
type Config struct {
	// GameHost is the address players are told to connect to
	GameHost string
	// BindHost is the address game servers are told to bind
	BindHost string
	// DefaultRuntime runs server entries whose manifest names no runtime
	DefaultRuntime string
}

// DefaultConfig returns default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		GameHost:       "127.0.0.1",
		BindHost:       "0.0.0.0",
		DefaultRuntime: "python3",
	}
}

// Dependencies are the collaborators of a Controller
type Dependencies struct {
	Store    storage.DocumentStore
	Registry Registry
	Spawner  Spawner
	Ports    PortAllocator
	Hasher   password.Hasher
	Clock    clock.Clock
	Random   random.Random
	Metrics  *metrics.Metrics
}

type document struct {
	Players map[string]*model.PlayerAccount `json:"players"`
	Rooms   map[string]*model.Room          `json:"rooms"`
}

// Controller manages players, the room state machine and game server launches
type Controller struct {
	store    storage.DocumentStore
	registry Registry
	spawner  Spawner
	ports    PortAllocator
	hasher   password.Hasher
	clock    clock.Clock
	random   random.Random
	metrics  *metrics.Metrics
	config   Config
	logger   *zap.Logger

	mu       sync.Mutex
	doc      document
	starting map[string]bool
	// live logins per user; a player is online while this is positive
	logins map[string]int
	// exits that arrived for a room while its start was still committing
	early map[string]supervisor.Exit
}

// NewController loads the lobby document and reconciles it with this run:
// every player is offline and every room whose server belonged to an earlier
// run is idle.
func NewController(ctx context.Context, deps Dependencies, config Config, logger *zap.Logger) (*Controller, error) {
	c := &Controller{
		store:    deps.Store,
		registry: deps.Registry,
		spawner:  deps.Spawner,
		ports:    deps.Ports,
		hasher:   deps.Hasher,
		clock:    deps.Clock,
		random:   deps.Random,
		metrics:  deps.Metrics,
		config:   config,
		logger:   logger.Named("lobby"),
		starting: make(map[string]bool),
		logins:   make(map[string]int),
		early:    make(map[string]supervisor.Exit),
	}

	err := c.store.Load(ctx, DocumentName, &c.doc)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load lobby document: %w", err)
	}
	if c.doc.Players == nil {
		c.doc.Players = make(map[string]*model.PlayerAccount)
	}
	if c.doc.Rooms == nil {
		c.doc.Rooms = make(map[string]*model.Room)
	}

	reset := 0
	for _, p := range c.doc.Players {
		p.Online = false
	}
	for _, r := range c.doc.Rooms {
		if c.normalizeLocked(r) {
			reset++
		}
	}
	if err := c.persist(ctx); err != nil {
		return nil, err
	}
	c.updateGaugeLocked()

	c.logger.Info("lobby loaded",
		zap.Int("players", len(c.doc.Players)),
		zap.Int("rooms", len(c.doc.Rooms)),
		zap.Int("rooms_reset", reset),
	)
	return c, nil
}

// Run applies game server exits to rooms until ctx is done
func (c *Controller) Run(ctx context.Context) error {
	exits := c.spawner.Exits()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-exits:
			c.handleExit(ctx, e)
		}
	}
}

func (c *Controller) handleExit(ctx context.Context, e supervisor.Exit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.doc.Rooms[e.RoomID]
	if !ok || room.Server == nil || room.Server.PID != e.PID {
		// Not ready, already normalized, or the room was deleted or restarted.
		// StartRoom picks up an exit that beat its commit.
		if c.starting[e.RoomID] {
			c.early[e.RoomID] = e
		}
		return
	}
	room.MarkIdle()
	if err := c.persist(ctx); err != nil {
		c.logger.Error("persist room reset", zap.String("room", e.RoomID), zap.Error(err))
	}
	c.updateGaugeLocked()
	c.logger.Info("room back to idle", zap.String("room", e.RoomID), zap.Int("pid", e.PID), zap.Int("exit_code", e.ExitCode))
}

// normalizeLocked resets a playing room whose process is gone. It reports
// whether the room changed.
func (c *Controller) normalizeLocked(r *model.Room) bool {
	if r.Status == model.RoomIdle && r.Server == nil {
		return false
	}
	if r.Status == model.RoomPlaying && r.Server != nil && c.spawner.IsAlive(r.Server.PID) {
		return false
	}
	r.MarkIdle()
	return true
}

// persist rewrites the whole document. Callers hold c.mu.
func (c *Controller) persist(ctx context.Context) error {
	if err := c.store.Save(ctx, DocumentName, &c.doc); err != nil {
		c.logger.Error("persist lobby document", zap.Error(err))
		return fmt.Errorf("persist lobby: %w", err)
	}
	return nil
}

func (c *Controller) updateGaugeLocked() {
	playing := 0
	for _, r := range c.doc.Rooms {
		if r.Status == model.RoomPlaying {
			playing++
		}
	}
	c.metrics.RoomsPlay.Set(float64(playing))
}
