// Package response defines the JSON bodies written back to clients. Every
// body carries ok and code; failures add detail fields.
package response

import (
	"time"

	"github.com/mcoot/gamehub/internal/model"
)

// Success codes
const (
	CodeHello          = "HELLO"
	CodePong           = "PONG"
	CodeRegistered     = "REGISTERED"
	CodeLoginOK        = "LOGIN_OK"
	CodeMyGames        = "MY_GAMES"
	CodeRemoved        = "REMOVED"
	CodeUploaded       = "UPLOADED"
	CodeGames          = "GAMES"
	CodeGame           = "GAME"
	CodeDownload       = "DOWNLOAD"
	CodeRated          = "RATED"
	CodeLaunchInfo     = "LAUNCH_INFO"
	CodeLoginSuccess   = "LOGIN_SUCCESS"
	CodeLogout         = "LOGOUT"
	CodePlayers        = "PLAYERS"
	CodeRooms          = "ROOMS"
	CodeRoom           = "ROOM"
	CodeRecorded       = "RECORDED"
	CodeRoomCreated    = "ROOM_CREATED"
	CodeJoined         = "JOINED"
	CodeLeft           = "LEFT"
	CodeAlreadyPlaying = "ALREADY_PLAYING"
	CodeGameStarted    = "GAME_STARTED"
)

// Status is the part of the body common to every response
type Status struct {
	OK   bool   `json:"ok"`
	Code string `json:"code"`
	Msg  string `json:"msg,omitempty"`
}

// Success returns a successful Status with the given code
func Success(code string) Status {
	return Status{OK: true, Code: code}
}

// Hello is sent unprompted right after a connection is accepted
func Hello(msg string) Status {
	return Status{OK: true, Code: CodeHello, Msg: msg}
}

// Failure is the body of every failed request
type Failure struct {
	Status
	Field        string   `json:"field,omitempty"`
	Missing      []string `json:"missing,omitempty"`
	MissingFiles []string `json:"missing_files,omitempty"`
	Required     int      `json:"required,omitempty"`
	ReturnCode   *int     `json:"returncode,omitempty"`
}

// DevLogin is the response to dev_login
type DevLogin struct {
	Status
	User            string `json:"user"`
	SessionReplaced bool   `json:"session_replaced"`
}

// Uploaded is the response to dev_upload
type Uploaded struct {
	Status
	GameID  string `json:"game_id"`
	Version string `json:"version"`
}

// VersionSummary is the public view of a version; storage paths are never
// exposed
type VersionSummary struct {
	Version    string    `json:"version"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// GameSummary is the public projection of a game
type GameSummary struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Author        string           `json:"author"`
	GameType      string           `json:"gameType"`
	MaxPlayers    int              `json:"maxPlayers"`
	LatestVersion string           `json:"latestVersion"`
	VersionCount  int              `json:"versionCount"`
	Removed       bool             `json:"removed"`
	RatingAvg     float64          `json:"ratingAvg"`
	RatingCount   int              `json:"ratingCount"`
	DownloadCount int              `json:"downloadCount"`
	Versions      []VersionSummary `json:"versions,omitempty"`
}

// GameSummaryFromModel projects a game, optionally with its version history
func GameSummaryFromModel(g model.Game, withVersions bool) GameSummary {
	s := GameSummary{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		Author:        g.Author,
		GameType:      g.GameType,
		MaxPlayers:    g.MaxPlayers,
		LatestVersion: g.Latest(),
		VersionCount:  len(g.Versions),
		Removed:       g.Removed,
		RatingAvg:     g.RatingAverage(),
		RatingCount:   len(g.Ratings),
		DownloadCount: g.DownloadCount,
	}
	if withVersions {
		s.Versions = make([]VersionSummary, len(g.Versions))
		for i, v := range g.Versions {
			s.Versions[i] = VersionSummary{Version: v.Version, UploadedAt: v.UploadedAt}
		}
	}
	return s
}

// GameSummariesFromModel projects a list of games
func GameSummariesFromModel(games []model.Game, withVersions bool) []GameSummary {
	out := make([]GameSummary, len(games))
	for i, g := range games {
		out[i] = GameSummaryFromModel(g, withVersions)
	}
	return out
}

// GameDetail is a game with its full version history and ratings
type GameDetail struct {
	GameSummary
	Ratings []model.Rating `json:"ratings"`
}

// GameDetailFromModel projects a game for game_detail
func GameDetailFromModel(g model.Game) GameDetail {
	d := GameDetail{
		GameSummary: GameSummaryFromModel(g, true),
		Ratings:     g.Ratings,
	}
	if d.Ratings == nil {
		d.Ratings = []model.Rating{}
	}
	return d
}

// Games is the response to list_games and dev_list
type Games struct {
	Status
	Games []GameSummary `json:"games"`
}

// Game is the response to game_detail
type Game struct {
	Status
	Game GameDetail `json:"game"`
}

// Download is the response to download_game
type Download struct {
	Status
	GameID     string `json:"game_id"`
	Version    string `json:"version"`
	ArchiveB64 string `json:"archive_b64"`
}

// LaunchInfo is the response to get_launch_info
type LaunchInfo struct {
	Status
	Info model.LaunchInfo `json:"info"`
}

// Login is the response to a lobby login
type Login struct {
	Status
	User string `json:"user"`
}

// PlayerSummary is the public view of a lobby player
type PlayerSummary struct {
	User        string    `json:"user"`
	Online      bool      `json:"online"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// PlayerSummaryFromModel projects a player account
func PlayerSummaryFromModel(p model.PlayerAccount) PlayerSummary {
	return PlayerSummary{User: p.Username, Online: p.Online, LastLoginAt: p.LastLoginAt}
}

// Players is the response to list_players
type Players struct {
	Status
	Players []PlayerSummary `json:"players"`
}

// Rooms is the response to list_rooms
type Rooms struct {
	Status
	Rooms []*model.Room `json:"rooms"`
}

// Room is the response to room_info, create_room, join_room and an
// idempotent start_room
type Room struct {
	Status
	Room *model.Room `json:"room"`
}

// ServerAddr tells players where to connect to a game server
type ServerAddr struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// GameStarted is the response to a successful start_room
type GameStarted struct {
	Status
	Server ServerAddr `json:"server"`
}

// ResponseCode returns the body's code
func (s Status) ResponseCode() string {
	return s.Code
}
