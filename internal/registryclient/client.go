// Package registryclient is the orchestrator's read-only view of the store
// registry. Each call opens a fresh connection, consumes the greeting, sends
// one request and reads one response.
package registryclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/api/request"
	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/framing"
	"github.com/mcoot/gamehub/internal/model"
)

// Config holds configuration for the registry client
type Config struct {
	// Addr is the registry's host:port
	Addr string
	// Timeout bounds one whole call, dial retries included
	Timeout time.Duration
	// DialRetries is how many times a refused dial is retried
	DialRetries uint64
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:17080",
		Timeout:     5 * time.Second,
		DialRetries: 3,
	}
}

// Client calls the registry over framed JSON
type Client struct {
	config Config
	dialer net.Dialer
	logger *zap.Logger
}

// New creates a registry client
func New(config Config, logger *zap.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		config: config,
		logger: logger.Named("registryclient"),
	}
}

// GameDetail fetches the public detail of a game
func (c *Client) GameDetail(ctx context.Context, gameID string) (response.GameDetail, error) {
	var resp response.Game
	err := c.call(ctx, struct {
		request.Envelope
		request.GameRef
	}{request.Envelope{Op: "game_detail"}, request.GameRef{GameID: gameID}}, &resp)
	return resp.Game, err
}

// LaunchInfo fetches how to start a server for a version of a game. An
// empty version means the latest.
func (c *Client) LaunchInfo(ctx context.Context, gameID, version string) (model.LaunchInfo, error) {
	var resp response.LaunchInfo
	err := c.call(ctx, struct {
		request.Envelope
		request.GameRef
	}{request.Envelope{Op: "get_launch_info"}, request.GameRef{GameID: gameID, Version: version}}, &resp)
	return resp.Info, err
}

// ListGames fetches the public game listing
func (c *Client) ListGames(ctx context.Context) ([]response.GameSummary, error) {
	var resp response.Games
	err := c.call(ctx, request.Envelope{Op: "list_games"}, &resp)
	return resp.Games, err
}

// Ping checks the registry is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, request.Envelope{Op: "ping"}, nil)
}

// call performs one request. A response with ok == false is returned as
// *model.RemoteError carrying the registry's code.
func (c *Client) call(ctx context.Context, req any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var conn net.Conn
	dial := func() error {
		var err error
		conn, err = c.dialer.DialContext(ctx, "tcp", c.config.Addr)
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), c.config.DialRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("registry dial failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(dial, policy, notify); err != nil {
		return fmt.Errorf("dial registry %s: %w", c.config.Addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	var hello response.Status
	if err := framing.RecvJSON(conn, &hello); err != nil {
		return fmt.Errorf("read registry greeting: %w", err)
	}
	if err := framing.SendJSON(conn, req); err != nil {
		return fmt.Errorf("send registry request: %w", err)
	}
	raw, err := framing.Recv(conn)
	if err != nil {
		return fmt.Errorf("read registry response: %w", err)
	}

	var status response.Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("decode registry response: %w", err)
	}
	if !status.OK {
		return &model.RemoteError{Code: status.Code}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode registry response: %w", err)
	}
	return nil
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}
