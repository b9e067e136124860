package model

import "slices"

// RoomStatus is the state of a room's game server
type RoomStatus string

const (
	RoomIdle    RoomStatus = "idle"    // No game server
	RoomPlaying RoomStatus = "playing" // Game server running
)

// ServerInfo locates the game server spawned for a room
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	PID  int    `json:"pid"`
}

// Room groups players around one game. Server is non-nil iff Status is
// RoomPlaying.
type Room struct {
	ID          string      `json:"id"`
	Host        string      `json:"host"`
	Members     []string    `json:"members"`
	GameID      string      `json:"game_id"`
	GameVersion string      `json:"game_version"`
	MaxPlayers  int         `json:"max_players"`
	Status      RoomStatus  `json:"status"`
	Server      *ServerInfo `json:"server"`
}

// HasMember reports whether user is in the room
func (r *Room) HasMember(user string) bool {
	return slices.Contains(r.Members, user)
}

// IsFull reports whether the room has reached its player limit
func (r *Room) IsFull() bool {
	return len(r.Members) >= r.MaxPlayers
}

// RemoveMember drops user from the room, handing the host role to the first
// remaining member when the host leaves
func (r *Room) RemoveMember(user string) {
	r.Members = slices.DeleteFunc(r.Members, func(m string) bool { return m == user })
	if r.Host == user {
		r.Host = ""
		if len(r.Members) > 0 {
			r.Host = r.Members[0]
		}
	}
}

// MarkIdle clears the room's game server
func (r *Room) MarkIdle() {
	r.Status = RoomIdle
	r.Server = nil
}

// MarkPlaying records a running game server for the room
func (r *Room) MarkPlaying(server ServerInfo) {
	r.Status = RoomPlaying
	r.Server = &server
}

// Clone returns a deep copy safe to hand outside the owning lock
func (r *Room) Clone() *Room {
	c := *r
	c.Members = slices.Clone(r.Members)
	if r.Server != nil {
		s := *r.Server
		c.Server = &s
	}
	return &c
}
