package model

import (
	"math"
	"time"
)

// Default game attributes applied when neither the upload nor the manifest
// provides a value
const (
	DefaultGameType    = "cli"
	DefaultMaxPlayers  = 2
	DefaultMinPlayers  = 2
	DefaultServerEntry = "server.py"
	DefaultClientEntry = "client.py"
)

// ManifestFile is the bundle manifest's file name, relative to the bundle root
const ManifestFile = "game_config.json"

// Game is a published title and its append-only version history
type Game struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Author        string    `json:"author"`
	Description   string    `json:"description"`
	GameType      string    `json:"gameType"`
	MaxPlayers    int       `json:"maxPlayers"`
	Versions      []Version `json:"versions"`
	LatestVersion string    `json:"latestVersion"`
	Removed       bool      `json:"removed"`
	Ratings       []Rating  `json:"ratings"`
	DownloadCount int       `json:"downloadCount"`
}

// Version is one committed upload of a game
type Version struct {
	Version       string    `json:"version"`
	ExtractedPath string    `json:"path"`
	ArchivePath   string    `json:"zip"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

// Rating is a player's score for a game they downloaded
type Rating struct {
	User    string    `json:"user"`
	Score   int       `json:"score"`
	Comment string    `json:"comment"`
	At      time.Time `json:"at"`
}

// Manifest is the decoded game_config.json of a bundle
type Manifest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	ServerEntry string `json:"server_entry"`
	ClientEntry string `json:"client_entry"`
	MinPlayers  int    `json:"min_players,omitempty"`
	MaxPlayers  int    `json:"max_players,omitempty"`
	Runtime     string `json:"runtime,omitempty"`
}

// LaunchInfo is everything the orchestrator needs to start a game server
type LaunchInfo struct {
	GameID      string `json:"game_id"`
	Version     string `json:"version"`
	Path        string `json:"path"`
	ServerEntry string `json:"server_entry"`
	ClientEntry string `json:"client_entry"`
	GameType    string `json:"game_type"`
	MaxPlayers  int    `json:"max_players"`
	MinPlayers  int    `json:"min_players"`
	Name        string `json:"name"`
	Runtime     string `json:"runtime,omitempty"`
}

// HasVersion reports whether version has already been committed
func (g *Game) HasVersion(version string) bool {
	_, ok := g.FindVersion(version)
	return ok
}

// FindVersion looks up a committed version by id
func (g *Game) FindVersion(version string) (Version, bool) {
	for _, v := range g.Versions {
		if v.Version == version {
			return v, true
		}
	}
	return Version{}, false
}

// Latest returns the id of the latest version, falling back to the last
// appended one
func (g *Game) Latest() string {
	if g.LatestVersion != "" {
		return g.LatestVersion
	}
	if len(g.Versions) > 0 {
		return g.Versions[len(g.Versions)-1].Version
	}
	return ""
}

// ResolveVersion returns the requested version, or the latest when requested
// is empty
func (g *Game) ResolveVersion(requested string) (Version, error) {
	if len(g.Versions) == 0 {
		return Version{}, ErrNoVersion
	}
	if requested == "" {
		requested = g.Latest()
	}
	v, ok := g.FindVersion(requested)
	if !ok {
		return Version{}, ErrNoSuchVersion
	}
	return v, nil
}

// RatingAverage returns the mean score rounded to two decimals, or 0 when unrated
func (g *Game) RatingAverage() float64 {
	if len(g.Ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range g.Ratings {
		total += r.Score
	}
	avg := float64(total) / float64(len(g.Ratings))
	return math.Round(avg*100) / 100
}
