// Package factory wires configuration into running store and lobby servers
package factory

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/gamehub/internal/api"
	"github.com/mcoot/gamehub/internal/api/handler"
	"github.com/mcoot/gamehub/internal/config"
	"github.com/mcoot/gamehub/internal/dependencies/clock"
	"github.com/mcoot/gamehub/internal/dependencies/random"
	"github.com/mcoot/gamehub/internal/metrics"
	"github.com/mcoot/gamehub/internal/ops"
	"github.com/mcoot/gamehub/internal/password"
	"github.com/mcoot/gamehub/internal/registryclient"
	"github.com/mcoot/gamehub/internal/services/lobby"
	"github.com/mcoot/gamehub/internal/services/ports"
	"github.com/mcoot/gamehub/internal/services/registry"
	"github.com/mcoot/gamehub/internal/services/supervisor"
	"github.com/mcoot/gamehub/internal/storage"
)

// Dependencies are the external collaborators shared by both apps.
// Zero fields are filled with production implementations.
type Dependencies struct {
	Storage storage.DocumentStore
	Clock   clock.Clock
	Random  random.Random
}

func (d *Dependencies) fill(cfg config.StorageConfig) error {
	if d.Storage == nil {
		store, err := OpenStorage(cfg)
		if err != nil {
			return err
		}
		d.Storage = store
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Random == nil {
		d.Random = random.New()
	}
	return nil
}

// StoreApp contains the wired components of the registry server
type StoreApp struct {
	Config   config.StoreConfig
	Logger   *zap.Logger
	Storage  storage.DocumentStore
	Metrics  *metrics.Metrics
	Registry *registry.Service
	Server   *api.Server
	// Ops is nil when no ops address is configured
	Ops *ops.Server
}

// NewStore creates the registry server
func NewStore(ctx context.Context, cfg config.StoreConfig, deps Dependencies, logger *zap.Logger) (*StoreApp, error) {
	if err := deps.fill(cfg.StorageConfig); err != nil {
		return nil, err
	}
	hasher, err := password.New(cfg.PasswordScheme)
	if err != nil {
		return nil, multierr.Append(err, deps.Storage.Close())
	}

	svc, err := registry.New(ctx, deps.Storage, hasher, deps.Clock, deps.Random, registry.Config{
		StorageRoot:       cfg.StorageRoot,
		ManifestCacheSize: cfg.ManifestCacheSize,
		MaxBundleBytes:    cfg.MaxBundleBytes,
	}, logger)
	if err != nil {
		return nil, multierr.Append(err, deps.Storage.Close())
	}

	m := metrics.New("store")
	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.ListenAddr

	app := &StoreApp{
		Config:   cfg,
		Logger:   logger,
		Storage:  deps.Storage,
		Metrics:  m,
		Registry: svc,
		Server:   api.NewServer(handler.NewStoreSessions(svc, m, logger), serverCfg, m, logger.Named("tcp")),
	}
	if cfg.OpsAddr != "" {
		app.Ops = newOpsServer(cfg.OpsAddr, ops.RouterConfig{Logger: logger.Named("ops"), Metrics: m, Registry: svc})
	}
	return app, nil
}

// Listen binds the TCP and ops addresses so Addr is known before Run
func (a *StoreApp) Listen() error {
	return listen(a.Server, a.Ops)
}

// Run serves until ctx is cancelled or a server fails
func (a *StoreApp) Run(ctx context.Context) error {
	return serve(ctx, a.Logger, a.Server, a.Ops)
}

// Close releases the app's storage
func (a *StoreApp) Close() error {
	return a.Storage.Close()
}

// LobbyApp contains the wired components of the orchestrator server
type LobbyApp struct {
	Config     config.LobbyConfig
	Logger     *zap.Logger
	Storage    storage.DocumentStore
	Metrics    *metrics.Metrics
	Registry   *registryclient.Client
	Supervisor *supervisor.Supervisor
	Ports      *ports.Allocator
	Controller *lobby.Controller
	Server     *api.Server
	// Ops is nil when no ops address is configured
	Ops *ops.Server
}

// NewLobby creates the orchestrator server. It does not contact the
// registry; calls are made when rooms are created and started.
func NewLobby(ctx context.Context, cfg config.LobbyConfig, deps Dependencies, logger *zap.Logger) (*LobbyApp, error) {
	if err := deps.fill(cfg.StorageConfig); err != nil {
		return nil, err
	}
	hasher, err := password.New(cfg.PasswordScheme)
	if err != nil {
		return nil, multierr.Append(err, deps.Storage.Close())
	}
	alloc, err := ports.New(cfg.PortBase, cfg.PortCeiling, logger)
	if err != nil {
		return nil, multierr.Append(err, deps.Storage.Close())
	}

	clientCfg := registryclient.DefaultConfig()
	clientCfg.Addr = cfg.StoreAddr
	if cfg.RPCTimeout > 0 {
		clientCfg.Timeout = cfg.RPCTimeout
	}
	client := registryclient.New(clientCfg, logger)
	sup := supervisor.New(cfg.ReadyDelay, logger)
	m := metrics.New("lobby")

	controller, err := lobby.NewController(ctx, lobby.Dependencies{
		Store:    deps.Storage,
		Registry: client,
		Spawner:  sup,
		Ports:    alloc,
		Hasher:   hasher,
		Clock:    deps.Clock,
		Random:   deps.Random,
		Metrics:  m,
	}, lobby.Config{
		GameHost:       cfg.GameHost,
		BindHost:       cfg.GameBindHost,
		DefaultRuntime: cfg.DefaultRuntime,
	}, logger)
	if err != nil {
		sup.Close()
		return nil, multierr.Append(err, deps.Storage.Close())
	}

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.ListenAddr

	app := &LobbyApp{
		Config:     cfg,
		Logger:     logger,
		Storage:    deps.Storage,
		Metrics:    m,
		Registry:   client,
		Supervisor: sup,
		Ports:      alloc,
		Controller: controller,
		Server:     api.NewServer(handler.NewLobbySessions(controller, m, logger), serverCfg, m, logger.Named("tcp")),
	}
	if cfg.OpsAddr != "" {
		app.Ops = newOpsServer(cfg.OpsAddr, ops.RouterConfig{Logger: logger.Named("ops"), Metrics: m, Lobby: controller})
	}
	return app, nil
}

// Listen binds the TCP and ops addresses so Addr is known before Run
func (a *LobbyApp) Listen() error {
	return listen(a.Server, a.Ops)
}

// Run serves and applies game server exits until ctx is cancelled or a
// server fails
func (a *LobbyApp) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Controller.Run(gctx) })
	g.Go(func() error {
		// the controller stops with the servers
		defer cancel()
		return serve(gctx, a.Logger, a.Server, a.Ops)
	})
	return g.Wait()
}

// Close stops exit reporting and releases the app's storage. Running game
// servers are left to finish.
func (a *LobbyApp) Close() error {
	a.Supervisor.Close()
	return a.Storage.Close()
}

func newOpsServer(addr string, routes ops.RouterConfig) *ops.Server {
	cfg := ops.DefaultServerConfig()
	cfg.Addr = addr
	return ops.NewServer(ops.NewRouter(routes), cfg, routes.Logger)
}

// serve runs the TCP server and the optional ops server until ctx is done,
// then shuts both down
func serve(ctx context.Context, logger *zap.Logger, server *api.Server, opsServer *ops.Server) error {
	if err := listen(server, opsServer); err != nil {
		return multierr.Append(err, server.Shutdown(context.Background()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	if opsServer != nil {
		g.Go(opsServer.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		err := server.Shutdown(context.Background())
		if opsServer != nil {
			err = multierr.Append(err, opsServer.Shutdown(context.Background()))
		}
		return err
	})
	return g.Wait()
}

func listen(server *api.Server, opsServer *ops.Server) error {
	if err := server.Listen(); err != nil {
		return err
	}
	if opsServer != nil {
		return opsServer.Listen()
	}
	return nil
}
