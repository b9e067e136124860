package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/api"
	"github.com/mcoot/gamehub/internal/api/middleware"
	"github.com/mcoot/gamehub/internal/api/request"
	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/metrics"
	"github.com/mcoot/gamehub/internal/model"
	"github.com/mcoot/gamehub/internal/services/lobby"
)

// LobbyHello is the greeting of the lobby server
const LobbyHello = "Lobby ready"

// LobbySessions creates a LobbySession per player connection
type LobbySessions struct {
	controller *lobby.Controller
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

var _ api.SessionFactory = (*LobbySessions)(nil)

// NewLobbySessions creates a new lobby session factory
func NewLobbySessions(controller *lobby.Controller, metrics *metrics.Metrics, logger *zap.Logger) *LobbySessions {
	return &LobbySessions{
		controller: controller,
		metrics:    metrics,
		logger:     logger.Named("session"),
	}
}

// NewSession implements api.SessionFactory
func (f *LobbySessions) NewSession(remote string) api.Session {
	s := &LobbySession{
		controller: f.controller,
		metrics:    f.metrics,
		logger:     f.logger.With(zap.String("remote", remote)),
	}
	s.router = s.routes()
	return s
}

// LobbySession serves one player connection
type LobbySession struct {
	controller *lobby.Controller
	metrics    *metrics.Metrics
	logger     *zap.Logger
	router     *api.Router
	user       string
}

func (s *LobbySession) routes() *api.Router {
	r := api.NewRouter(s.logger, s.metrics.Requests, middleware.Recovery(s.logger))
	auth := middleware.Auth(func() error {
		if s.user == "" {
			return model.ErrAuthRequired
		}
		return nil
	})

	r.Handle("ping", ping)
	r.Handle("register", s.register)
	r.Handle("login", s.login)
	r.Handle("logout", s.logout)
	r.Handle("list_players", s.listPlayers)
	r.Handle("list_rooms", s.listRooms)
	r.Handle("room_info", s.roomInfo)
	r.Handle("record_download", s.recordDownload, auth)
	r.Handle("create_room", s.createRoom, auth)
	r.Handle("join_room", s.joinRoom, auth)
	r.Handle("leave_room", s.leaveRoom, auth)
	r.Handle("start_room", s.startRoom, auth)
	return r
}

// Hello implements api.Session
func (s *LobbySession) Hello() any { return response.Hello(LobbyHello) }

// Router implements api.Session
func (s *LobbySession) Router() *api.Router { return s.router }

// Close marks the connection's player offline
func (s *LobbySession) Close(ctx context.Context) {
	if s.user == "" {
		return
	}
	if err := s.controller.Logout(ctx, s.user); err != nil {
		s.logger.Warn("failed to log out on disconnect", zap.String("user", s.user), zap.Error(err))
	}
}

func (s *LobbySession) register(ctx context.Context, raw []byte) (any, error) {
	var req request.Credentials
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	if err := s.controller.Register(ctx, req.User, req.Password); err != nil {
		return nil, err
	}
	return response.Success(response.CodeRegistered), nil
}

func (s *LobbySession) login(ctx context.Context, raw []byte) (any, error) {
	var req request.Credentials
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	if err := s.controller.Login(ctx, req.User, req.Password); err != nil {
		return nil, err
	}
	// The new login replaces this connection's previous one
	s.Close(ctx)
	s.user = req.User
	return response.Login{Status: response.Success(response.CodeLoginSuccess), User: req.User}, nil
}

func (s *LobbySession) logout(ctx context.Context, _ []byte) (any, error) {
	s.Close(ctx)
	s.user = ""
	return response.Success(response.CodeLogout), nil
}

func (s *LobbySession) listPlayers(context.Context, []byte) (any, error) {
	players := s.controller.ListPlayers()
	out := make([]response.PlayerSummary, len(players))
	for i, p := range players {
		out[i] = response.PlayerSummaryFromModel(p)
	}
	return response.Players{Status: response.Success(response.CodePlayers), Players: out}, nil
}

func (s *LobbySession) listRooms(ctx context.Context, _ []byte) (any, error) {
	rooms, err := s.controller.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return response.Rooms{
		Status: response.Success(response.CodeRooms),
		Rooms:  rooms,
	}, nil
}

func (s *LobbySession) roomInfo(ctx context.Context, raw []byte) (any, error) {
	var req request.RoomRef
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	room, err := s.controller.RoomInfo(ctx, req.Room)
	if err != nil {
		return nil, err
	}
	return response.Room{Status: response.Success(response.CodeRoom), Room: room}, nil
}

func (s *LobbySession) recordDownload(ctx context.Context, raw []byte) (any, error) {
	var req request.RecordDownload
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	if err := s.controller.RecordDownload(ctx, s.user, req.GameID, req.Version); err != nil {
		return nil, err
	}
	return response.Success(response.CodeRecorded), nil
}

func (s *LobbySession) createRoom(ctx context.Context, raw []byte) (any, error) {
	var req request.CreateRoom
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	room, err := s.controller.CreateRoom(ctx, s.user, req.Room, req.GameID)
	if err != nil {
		return nil, err
	}
	return response.Room{Status: response.Success(response.CodeRoomCreated), Room: room}, nil
}

func (s *LobbySession) joinRoom(ctx context.Context, raw []byte) (any, error) {
	var req request.RoomRef
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	room, err := s.controller.JoinRoom(ctx, s.user, req.Room)
	if err != nil {
		return nil, err
	}
	return response.Room{Status: response.Success(response.CodeJoined), Room: room}, nil
}

func (s *LobbySession) leaveRoom(ctx context.Context, raw []byte) (any, error) {
	var req request.RoomRef
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	if err := s.controller.LeaveRoom(ctx, s.user, req.Room); err != nil {
		return nil, err
	}
	return response.Success(response.CodeLeft), nil
}

func (s *LobbySession) startRoom(ctx context.Context, raw []byte) (any, error) {
	var req request.RoomRef
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	res, err := s.controller.StartRoom(ctx, s.user, req.Room)
	if err != nil {
		return nil, err
	}
	if res.AlreadyPlaying {
		return response.Room{Status: response.Success(response.CodeAlreadyPlaying), Room: res.Room}, nil
	}
	return response.GameStarted{
		Status: response.Success(response.CodeGameStarted),
		Server: response.ServerAddr{Host: res.Server.Host, Port: res.Server.Port},
	}, nil
}
