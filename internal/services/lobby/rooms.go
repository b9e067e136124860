package lobby

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/model"
)

// CreateRoom opens an idle room for gameID hosted by user. The game's
// current latest version and player limit are captured at creation. An
// empty roomID is generated.
func (c *Controller) CreateRoom(ctx context.Context, user, roomID, gameID string) (*model.Room, error) {
	detail, err := c.registry.GameDetail(ctx, gameID)
	if err != nil {
		c.logger.Warn("game lookup failed", zap.String("game_id", gameID), zap.Error(err))
		var remote *model.RemoteError
		if errors.As(err, &remote) {
			return nil, model.ErrNoSuchGame
		}
		return nil, err
	}

	maxPlayers := detail.MaxPlayers
	if maxPlayers < 1 {
		maxPlayers = model.DefaultMaxPlayers
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if roomID == "" {
		roomID = c.newRoomIDLocked()
	} else if _, ok := c.doc.Rooms[roomID]; ok {
		return nil, model.ErrRoomExists
	}

	room := &model.Room{
		ID:          roomID,
		Host:        user,
		Members:     []string{user},
		GameID:      gameID,
		GameVersion: detail.LatestVersion,
		MaxPlayers:  maxPlayers,
		Status:      model.RoomIdle,
	}
	c.doc.Rooms[roomID] = room
	if err := c.persist(ctx); err != nil {
		delete(c.doc.Rooms, roomID)
		return nil, err
	}

	c.logger.Info("room created",
		zap.String("room", roomID),
		zap.String("host", user),
		zap.String("game_id", gameID),
		zap.String("version", detail.LatestVersion),
	)
	return room.Clone(), nil
}

func (c *Controller) newRoomIDLocked() string {
	for {
		id := "room-" + c.random.String(RoomCodeLength, RoomCodeAlphabet)
		if _, ok := c.doc.Rooms[id]; !ok {
			return id
		}
	}
}

// JoinRoom adds user to an idle room. Joining a room one is already in
// succeeds without change.
func (c *Controller) JoinRoom(ctx context.Context, user, roomID string) (*model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.roomLocked(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HasMember(user) {
		return room.Clone(), nil
	}
	if room.Status == model.RoomPlaying {
		return nil, model.ErrInGame
	}
	if room.IsFull() {
		return nil, model.ErrRoomFull
	}

	room.Members = append(room.Members, user)
	if err := c.persist(ctx); err != nil {
		room.Members = room.Members[:len(room.Members)-1]
		return nil, err
	}
	c.logger.Info("player joined room", zap.String("room", roomID), zap.String("user", user))
	return room.Clone(), nil
}

// LeaveRoom removes user from a room, passing the host role on and deleting
// the room once it is empty
func (c *Controller) LeaveRoom(ctx context.Context, user, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.doc.Rooms[roomID]
	if !ok {
		return model.ErrNoSuchRoom
	}
	if !room.HasMember(user) {
		return nil
	}

	room.RemoveMember(user)
	if len(room.Members) == 0 {
		delete(c.doc.Rooms, roomID)
		c.logger.Info("room closed", zap.String("room", roomID))
	}
	c.updateGaugeLocked()
	return c.persist(ctx)
}

// RoomInfo returns a normalized copy of a room
func (c *Controller) RoomInfo(ctx context.Context, roomID string) (*model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.roomLocked(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room.Clone(), nil
}

// ListRooms returns normalized copies of every room ordered by id
func (c *Controller) ListRooms(ctx context.Context) ([]*model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	rooms := make([]*model.Room, 0, len(c.doc.Rooms))
	for _, r := range c.doc.Rooms {
		if c.normalizeLocked(r) {
			changed = true
		}
		rooms = append(rooms, r.Clone())
	}
	if changed {
		c.updateGaugeLocked()
		if err := c.persist(ctx); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(rooms, func(a, b *model.Room) int { return strings.Compare(a.ID, b.ID) })
	return rooms, nil
}

// roomLocked looks up and normalizes a room, persisting any reset
func (c *Controller) roomLocked(ctx context.Context, roomID string) (*model.Room, error) {
	room, ok := c.doc.Rooms[roomID]
	if !ok {
		return nil, model.ErrNoSuchRoom
	}
	if c.normalizeLocked(room) {
		c.logger.Info("stale room reset", zap.String("room", roomID))
		c.updateGaugeLocked()
		if err := c.persist(ctx); err != nil {
			return nil, err
		}
	}
	return room, nil
}
