package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/api/apierr"
	"github.com/mcoot/gamehub/internal/api/request"
	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/framing"
	"github.com/mcoot/gamehub/internal/metrics"
)

// Session is the per-connection state of a client
type Session interface {
	// Hello is sent as soon as the connection is accepted
	Hello() any
	// Router dispatches the session's requests
	Router() *Router
	// Close releases whatever the session holds once the connection ends
	Close(ctx context.Context)
}

// SessionFactory creates a Session for each accepted connection
type SessionFactory interface {
	NewSession(remote string) Session
}

// ServerConfig holds configuration for the framed TCP server
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns sensible defaults for server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            "0.0.0.0:17080",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server accepts TCP connections and serves one Session per connection on
// its own goroutine
type Server struct {
	config   ServerConfig
	sessions SessionFactory
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// NewServer creates a new framed TCP server
func NewServer(sessions SessionFactory, config ServerConfig, metrics *metrics.Metrics, logger *zap.Logger) *Server {
	return &Server{
		config:   config,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Listen binds the listen address. Addr is valid afterwards. Calling it
// again is a no-op.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	return nil
}

// Start listens if needed and accepts connections until Shutdown
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	ln := s.currentListener()

	s.logger.Info("starting TCP server", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines to finish
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down TCP server")

	s.mu.Lock()
	s.closing = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown error: %w", shutdownCtx.Err())
	}

	s.logger.Info("TCP server stopped")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

func (s *Server) currentListener() net.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer func() { _ = conn.Close() }()

	remote := conn.RemoteAddr().String()
	logger := s.logger.With(zap.String("remote", remote))

	s.metrics.Connections.Inc()
	defer s.metrics.Connections.Dec()

	sess := s.sessions.NewSession(remote)
	defer sess.Close(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("connection panic", zap.Any("error", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	logger.Debug("connection opened")
	defer logger.Debug("connection closed")

	if err := response.Frame(conn, sess.Hello()); err != nil {
		return
	}

	router := sess.Router()
	for {
		raw, err := framing.Recv(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Warn("dropping connection", zap.Error(err))
			}
			return
		}

		op, err := request.Op(raw)
		if err != nil {
			logger.Warn("dropping connection after malformed request", zap.Error(err))
			return
		}

		resp := router.Dispatch(ctx, op, raw)
		err = response.Frame(conn, resp)
		if errors.Is(err, framing.ErrMessageTooLarge) {
			err = response.Frame(conn, apierr.Failure(err))
		}
		if err != nil {
			logger.Debug("write failed", zap.Error(err))
			return
		}
	}
}
