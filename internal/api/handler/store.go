package handler

import (
	"context"
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/api"
	"github.com/mcoot/gamehub/internal/api/apierr"
	"github.com/mcoot/gamehub/internal/api/middleware"
	"github.com/mcoot/gamehub/internal/api/request"
	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/metrics"
	"github.com/mcoot/gamehub/internal/model"
	"github.com/mcoot/gamehub/internal/services/registry"
)

// StoreHello is the greeting of the store server
const StoreHello = "Store server ready"

// StoreSessions creates a StoreSession per registry connection
type StoreSessions struct {
	registry *registry.Service
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

var _ api.SessionFactory = (*StoreSessions)(nil)

// NewStoreSessions creates a new store session factory
func NewStoreSessions(registry *registry.Service, metrics *metrics.Metrics, logger *zap.Logger) *StoreSessions {
	return &StoreSessions{
		registry: registry,
		metrics:  metrics,
		logger:   logger.Named("session"),
	}
}

// NewSession implements api.SessionFactory
func (f *StoreSessions) NewSession(remote string) api.Session {
	s := &StoreSession{
		registry: f.registry,
		metrics:  f.metrics,
		logger:   f.logger.With(zap.String("remote", remote)),
	}
	s.router = s.routes()
	return s
}

// StoreSession serves one registry connection. At most one developer is
// logged in per connection.
type StoreSession struct {
	registry *registry.Service
	metrics  *metrics.Metrics
	logger   *zap.Logger
	router   *api.Router
	dev      model.DeveloperSession
}

func (s *StoreSession) routes() *api.Router {
	r := api.NewRouter(s.logger, s.metrics.Requests, middleware.Recovery(s.logger))
	auth := middleware.Auth(func() error { return s.registry.ValidateSession(s.dev) })

	r.Handle("ping", ping)
	r.Handle("dev_register", s.devRegister)
	r.Handle("dev_login", s.devLogin)
	r.Handle("dev_list", s.devList, auth)
	r.Handle("dev_remove", s.devRemove, auth)
	r.Handle("dev_upload", s.devUpload, auth)
	r.Handle("list_games", s.listGames)
	r.Handle("game_detail", s.gameDetail)
	r.Handle("download_game", s.downloadGame)
	r.Handle("record_rating", s.recordRating)
	r.Handle("get_launch_info", s.launchInfo)
	return r
}

// Hello implements api.Session
func (s *StoreSession) Hello() any { return response.Hello(StoreHello) }

// Router implements api.Session
func (s *StoreSession) Router() *api.Router { return s.router }

// Close ends the connection's developer session if it is still current
func (s *StoreSession) Close(context.Context) {
	s.registry.EndSession(s.dev)
}

func ping(context.Context, []byte) (any, error) {
	return response.Success(response.CodePong), nil
}

func (s *StoreSession) devRegister(ctx context.Context, raw []byte) (any, error) {
	var req request.Credentials
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	if err := s.registry.RegisterDeveloper(ctx, req.User, req.Password); err != nil {
		return nil, err
	}
	return response.Success(response.CodeRegistered), nil
}

func (s *StoreSession) devLogin(_ context.Context, raw []byte) (any, error) {
	var req request.Credentials
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	sess, replaced, err := s.registry.LoginDeveloper(req.User, req.Password)
	if err != nil {
		return nil, err
	}
	if s.dev.Username != "" && s.dev.Username != sess.Username {
		s.registry.EndSession(s.dev)
	}
	s.dev = sess
	return response.DevLogin{
		Status:          response.Success(response.CodeLoginOK),
		User:            sess.Username,
		SessionReplaced: replaced,
	}, nil
}

func (s *StoreSession) devList(context.Context, []byte) (any, error) {
	games := s.registry.ListGames(registry.ListOptions{Author: s.dev.Username, IncludeRemoved: true})
	return response.Games{
		Status: response.Success(response.CodeMyGames),
		Games:  response.GameSummariesFromModel(games, true),
	}, nil
}

func (s *StoreSession) devRemove(ctx context.Context, raw []byte) (any, error) {
	var req request.GameRef
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	if err := s.registry.RemoveGame(ctx, s.dev, req.GameID); err != nil {
		return nil, err
	}
	return response.Success(response.CodeRemoved), nil
}

func (s *StoreSession) devUpload(ctx context.Context, raw []byte) (resp any, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = apierr.Code(err)
		}
		s.metrics.Uploads.WithLabelValues(result).Inc()
	}()

	var req request.Upload
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	maxPlayers, _, err := request.Int(req.MaxPlayers, "max_players")
	if err != nil {
		return nil, err
	}
	if req.ArchiveB64 == "" {
		return nil, model.ErrNoArchive
	}
	blob, err := base64.StdEncoding.DecodeString(req.ArchiveB64)
	if err != nil {
		return nil, model.ErrBadArchive
	}

	res, err := s.registry.UploadGame(ctx, s.dev, registry.UploadRequest{
		GameID:      req.GameID,
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
		GameType:    req.GameType,
		MaxPlayers:  maxPlayers,
		Archive:     blob,
	})
	if err != nil {
		return nil, err
	}
	return response.Uploaded{
		Status:  response.Success(response.CodeUploaded),
		GameID:  res.GameID,
		Version: res.Version,
	}, nil
}

func (s *StoreSession) listGames(_ context.Context, raw []byte) (any, error) {
	var req request.ListGames
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	games := s.registry.ListGames(registry.ListOptions{Author: req.Author})
	return response.Games{
		Status: response.Success(response.CodeGames),
		Games:  response.GameSummariesFromModel(games, req.IncludeVersions),
	}, nil
}

func (s *StoreSession) gameDetail(_ context.Context, raw []byte) (any, error) {
	var req request.GameRef
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	game, err := s.registry.GameDetail(req.GameID)
	if err != nil {
		return nil, err
	}
	return response.Game{
		Status: response.Success(response.CodeGame),
		Game:   response.GameDetailFromModel(game),
	}, nil
}

func (s *StoreSession) downloadGame(ctx context.Context, raw []byte) (any, error) {
	var req request.Download
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	dl, err := s.registry.DownloadGame(ctx, req.GameID, req.Version, req.Player)
	if err != nil {
		return nil, err
	}
	return response.Download{
		Status:     response.Success(response.CodeDownload),
		GameID:     dl.GameID,
		Version:    dl.Version,
		ArchiveB64: base64.StdEncoding.EncodeToString(dl.Archive),
	}, nil
}

func (s *StoreSession) recordRating(ctx context.Context, raw []byte) (any, error) {
	var req request.Rating
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	score, _, err := request.Int(req.Score, "score")
	if err != nil {
		return nil, err
	}
	if err := s.registry.RecordRating(ctx, req.Player, req.GameID, score, req.Comment); err != nil {
		return nil, err
	}
	return response.Success(response.CodeRated), nil
}

func (s *StoreSession) launchInfo(_ context.Context, raw []byte) (any, error) {
	var req request.GameRef
	if err := request.Decode(raw, &req); err != nil {
		return nil, err
	}
	info, err := s.registry.LaunchInfo(req.GameID, req.Version)
	if err != nil {
		return nil, err
	}
	return response.LaunchInfo{
		Status: response.Success(response.CodeLaunchInfo),
		Info:   info,
	}, nil
}
