package model

import "time"

// PlayerAccount is a lobby account. Downloads maps game id to the version
// the player last reported installing.
type PlayerAccount struct {
	Username     string            `json:"username"`
	PasswordHash string            `json:"passwordHash"`
	CreatedAt    time.Time         `json:"createdAt"`
	Online       bool              `json:"online"`
	LastLoginAt  time.Time         `json:"lastLoginAt"`
	Downloads    map[string]string `json:"downloads"`
}
