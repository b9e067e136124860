package model

import "time"

// DeveloperAccount is a registry account allowed to publish games
type DeveloperAccount struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DeveloperSession is the single live login of a developer account
type DeveloperSession struct {
	Username string
	Token    string
}
