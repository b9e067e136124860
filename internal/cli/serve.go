package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/config"
	"github.com/mcoot/gamehub/internal/factory"
	"github.com/mcoot/gamehub/internal/logging"
)

// app is what both servers look like to the serve commands
type app interface {
	Run(ctx context.Context) error
	Close() error
}

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Game store server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the game store",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeCfg, err := config.LoadStore(cfg.ConfigFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(storeCfg.LogLevel)
			if err != nil {
				return err
			}
			return runApp(cmd.Context(), logger, func(ctx context.Context) (app, error) {
				return factory.NewStore(ctx, storeCfg, factory.Dependencies{}, logger)
			})
		},
	})
	return cmd
}

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Lobby server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the lobby",
		RunE: func(cmd *cobra.Command, args []string) error {
			lobbyCfg, err := config.LoadLobby(cfg.ConfigFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(lobbyCfg.LogLevel)
			if err != nil {
				return err
			}
			return runApp(cmd.Context(), logger, func(ctx context.Context) (app, error) {
				return factory.NewLobby(ctx, lobbyCfg, factory.Dependencies{}, logger)
			})
		},
	})
	return cmd
}

// runApp builds an app and runs it until SIGINT or SIGTERM
func runApp(parent context.Context, logger *zap.Logger, build func(context.Context) (app, error)) error {
	defer func() { _ = logger.Sync() }()
	if parent == nil {
		parent = context.Background()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx)
	if err != nil {
		logger.Error("failed to create application", zap.Error(err))
		return err
	}

	runErr := a.Run(ctx)
	if runErr != nil {
		logger.Error("server error", zap.Error(runErr))
	}
	if err := a.Close(); err != nil {
		logger.Error("close error", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	logger.Info("server stopped")
	return runErr
}
