package lobby

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/model"
)

// Register creates a player account
func (c *Controller) Register(ctx context.Context, user, pw string) error {
	if user == "" {
		return &model.FieldError{Field: "user"}
	}
	hash, err := c.hasher.Hash(pw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.doc.Players[user]; ok {
		return model.ErrUserExists
	}
	c.doc.Players[user] = &model.PlayerAccount{
		Username:     user,
		PasswordHash: hash,
		CreatedAt:    c.clock.Now(),
		Downloads:    map[string]string{},
	}
	if err := c.persist(ctx); err != nil {
		delete(c.doc.Players, user)
		return err
	}
	c.logger.Info("player registered", zap.String("user", user))
	return nil
}

// Login checks credentials and marks the player online. Unknown users and
// wrong passwords are indistinguishable. Every successful Login must be
// paired with one Logout.
func (c *Controller) Login(ctx context.Context, user, pw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.doc.Players[user]
	if !ok || !c.hasher.Verify(p.PasswordHash, pw) {
		return model.ErrAuthFailed
	}
	p.Online = true
	p.LastLoginAt = c.clock.Now()
	if err := c.persist(ctx); err != nil {
		return err
	}
	c.logins[user]++
	c.logger.Info("player logged in", zap.String("user", user), zap.Int("connections", c.logins[user]))
	return nil
}

// Logout ends one login of the player. The player goes offline once no
// login remains.
func (c *Controller) Logout(ctx context.Context, user string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.logins[user] > 1 {
		c.logins[user]--
		return nil
	}
	delete(c.logins, user)

	p, ok := c.doc.Players[user]
	if !ok || !p.Online {
		return nil
	}
	p.Online = false
	return c.persist(ctx)
}

// ListPlayers returns every player ordered by name
func (c *Controller) ListPlayers() []model.PlayerAccount {
	c.mu.Lock()
	defer c.mu.Unlock()

	players := make([]model.PlayerAccount, 0, len(c.doc.Players))
	for _, p := range c.doc.Players {
		players = append(players, *p)
	}
	slices.SortFunc(players, func(a, b model.PlayerAccount) int { return strings.Compare(a.Username, b.Username) })
	return players
}

// Player returns a copy of one player account
func (c *Controller) Player(user string) (model.PlayerAccount, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.doc.Players[user]
	if !ok {
		return model.PlayerAccount{}, false
	}
	cp := *p
	cp.Downloads = make(map[string]string, len(p.Downloads))
	for k, v := range p.Downloads {
		cp.Downloads[k] = v
	}
	return cp, true
}

// RecordDownload notes the version of a game the player installed
func (c *Controller) RecordDownload(ctx context.Context, user, gameID, version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.doc.Players[user]
	if !ok {
		return model.ErrAuthRequired
	}
	if p.Downloads == nil {
		p.Downloads = make(map[string]string)
	}
	p.Downloads[gameID] = version
	return c.persist(ctx)
}
