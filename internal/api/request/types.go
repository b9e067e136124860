// Package request defines the JSON bodies clients send. Every body carries
// an op naming the operation; the remaining fields depend on the op.
package request

import "encoding/json"

// Envelope holds the op shared by every request
type Envelope struct {
	Op string `json:"op"`
}

// Credentials is the body of dev_register, dev_login, register and login
type Credentials struct {
	User     string `json:"user" validate:"required"`
	Password string `json:"password"`
}

// GameRef names a game and optionally one of its versions
type GameRef struct {
	GameID  string `json:"game_id" validate:"required"`
	Version string `json:"version,omitempty"`
}

// ListGames is the body of list_games
type ListGames struct {
	Author          string `json:"author,omitempty"`
	IncludeVersions bool   `json:"include_versions,omitempty"`
}

// Upload is the body of dev_upload. MaxPlayers accepts a number or a
// numeric string.
type Upload struct {
	GameID      string          `json:"game_id"`
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	GameType    string          `json:"game_type"`
	MaxPlayers  json.RawMessage `json:"max_players"`
	ArchiveB64  string          `json:"archive_b64"`
}

// Download is the body of download_game
type Download struct {
	GameID  string `json:"game_id" validate:"required"`
	Version string `json:"version,omitempty"`
	Player  string `json:"player,omitempty"`
}

// Rating is the body of record_rating. Score accepts a number or a numeric
// string.
type Rating struct {
	GameID  string          `json:"game_id" validate:"required"`
	Player  string          `json:"player"`
	Score   json.RawMessage `json:"score"`
	Comment string          `json:"comment"`
}

// RoomRef names a room
type RoomRef struct {
	Room string `json:"room" validate:"required"`
}

// CreateRoom is the body of create_room. Room is generated when empty.
type CreateRoom struct {
	Room   string `json:"room,omitempty"`
	GameID string `json:"game_id" validate:"required"`
}

// RecordDownload is the body of record_download
type RecordDownload struct {
	GameID  string `json:"game_id" validate:"required"`
	Version string `json:"version" validate:"required"`
}
