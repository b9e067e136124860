package api_test

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gamehub/internal/api"
	"github.com/mcoot/gamehub/internal/api/middleware"
	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/framing"
	"github.com/mcoot/gamehub/internal/metrics"
	"github.com/mcoot/gamehub/internal/testutil"
)

type echoSession struct {
	router *api.Router
	closed *atomic.Int32
}

func (s *echoSession) Hello() any            { return response.Hello("echo ready") }
func (s *echoSession) Router() *api.Router   { return s.router }
func (s *echoSession) Close(context.Context) { s.closed.Add(1) }

type echoSessions struct {
	closed atomic.Int32
}

func (f *echoSessions) NewSession(string) api.Session {
	r := api.NewRouter(testutil.NopLogger(), nil, middleware.Recovery(testutil.NopLogger()))
	r.Handle("ping", func(context.Context, []byte) (any, error) {
		return response.Success(response.CodePong), nil
	})
	r.Handle("huge", func(context.Context, []byte) (any, error) {
		return map[string]string{"blob": strings.Repeat("x", framing.MaxMessageSize)}, nil
	})
	r.Handle("panic", func(context.Context, []byte) (any, error) {
		panic("boom")
	})
	return &echoSession{router: r, closed: &f.closed}
}

func startServer(t *testing.T) (*api.Server, *echoSessions, *metrics.Metrics) {
	t.Helper()
	sessions := &echoSessions{}
	m := metrics.New("test")
	cfg := api.DefaultServerConfig()
	cfg.Addr = "127.0.0.1:0"
	srv := api.NewServer(sessions, cfg, m, testutil.NopLogger())
	require.NoError(t, srv.Listen())

	go func() { _ = srv.Start(context.Background()) }()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, sessions, m
}

func dial(t *testing.T, srv *api.Server) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	var hello response.Status
	require.NoError(t, framing.RecvJSON(conn, &hello))
	assert.Equal(t, response.CodeHello, hello.Code)
	assert.Equal(t, "echo ready", hello.Msg)
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, req any) response.Failure {
	t.Helper()
	require.NoError(t, framing.SendJSON(conn, req))
	var resp response.Failure
	require.NoError(t, framing.RecvJSON(conn, &resp))
	return resp
}

func TestServerGreetsAndServesRequests(t *testing.T) {
	srv, _, _ := startServer(t)
	conn := dial(t, srv)

	for range 3 {
		resp := roundTrip(t, conn, map[string]any{"op": "ping"})
		assert.True(t, resp.OK)
		assert.Equal(t, response.CodePong, resp.Code)
	}
}

func TestServerUnknownOpKeepsConnection(t *testing.T) {
	srv, _, _ := startServer(t)
	conn := dial(t, srv)

	resp := roundTrip(t, conn, map[string]any{"op": "teleport"})
	assert.False(t, resp.OK)
	assert.Equal(t, "UNKNOWN_OP", resp.Code)

	assert.Equal(t, response.CodePong, roundTrip(t, conn, map[string]any{"op": "ping"}).Code)
}

func TestServerOversizeResponseBecomesFailure(t *testing.T) {
	srv, _, _ := startServer(t)
	conn := dial(t, srv)

	resp := roundTrip(t, conn, map[string]any{"op": "huge"})
	assert.False(t, resp.OK)
	assert.Equal(t, "MESSAGE_TOO_LARGE", resp.Code)
}

func TestServerHandlerPanicIsInternalError(t *testing.T) {
	srv, _, _ := startServer(t)
	conn := dial(t, srv)

	resp := roundTrip(t, conn, map[string]any{"op": "panic"})
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.Equal(t, response.CodePong, roundTrip(t, conn, map[string]any{"op": "ping"}).Code)
}

func TestServerDropsMalformedRequest(t *testing.T) {
	srv, sessions, _ := startServer(t)
	conn := dial(t, srv)

	require.NoError(t, framing.Send(conn, []byte("{not json")))
	_, err := framing.Recv(conn)
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return sessions.closed.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServerClosesSessionOnDisconnect(t *testing.T) {
	srv, sessions, m := startServer(t)
	conn := dial(t, srv)
	assert.Equal(t, response.CodePong, roundTrip(t, conn, map[string]any{"op": "ping"}).Code)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return sessions.closed.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return prom.ToFloat64(m.Connections) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestServerShutdownClosesConnections(t *testing.T) {
	srv, sessions, _ := startServer(t)
	conn := dial(t, srv)

	require.NoError(t, srv.Shutdown(context.Background()))
	_, err := framing.Recv(conn)
	assert.Error(t, err)
	assert.Equal(t, int32(1), sessions.closed.Load())

	_, err = net.DialTimeout("tcp", srv.Addr(), 200*time.Millisecond)
	assert.Error(t, err)
}
