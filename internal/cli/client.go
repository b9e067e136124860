package cli

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/mcoot/gamehub/internal/framing"
)

// Client is a framed JSON client holding one connection to a server
type Client struct {
	conn    net.Conn
	timeout time.Duration
	// Hello is the greeting the server sent on connect
	Hello map[string]any
}

// Dial connects to addr and reads the server's greeting
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	c := &Client{conn: conn, timeout: timeout}
	if err := c.recv(&c.Hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	return c, nil
}

// Call sends one request and returns the decoded response
func (c *Client) Call(req any) (map[string]any, error) {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	if err := framing.SendJSON(c.conn, req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	var resp map[string]any
	if err := c.recv(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// CallRaw sends a request given as JSON text
func (c *Client) CallRaw(body string) (map[string]any, error) {
	var req map[string]any
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return nil, fmt.Errorf("request is not a JSON object: %w", err)
	}
	return c.Call(req)
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) recv(v any) error {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	return framing.RecvJSON(c.conn, v)
}

// failed reports whether resp is a failure body
func failed(resp map[string]any) bool {
	ok, _ := resp["ok"].(bool)
	return !ok
}

// ResponseError is returned by commands whose last response was a failure
type ResponseError struct {
	Code string
	Msg  string
}

func (e *ResponseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	return e.Code
}

func responseError(resp map[string]any) error {
	code, _ := resp["code"].(string)
	msg, _ := resp["msg"].(string)
	return &ResponseError{Code: code, Msg: msg}
}
