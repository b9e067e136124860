// Package cli implements the gamehub command: the store and lobby servers
// and a small framed JSON client for talking to them.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "gamehub",
		Short: "Game store and lobby servers",
		Long: `gamehub runs the game store, where developers publish game bundles, and
the lobby, where players gather in rooms and launch game servers.

The client commands speak the servers' length-prefixed JSON protocol.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Config file (env: GAMEHUB_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Server address for client commands (env: GAMEHUB_ADDR)")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout for client commands")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newStoreCmd())
	rootCmd.AddCommand(newLobbyCmd())
	rootCmd.AddCommand(newPingCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newUploadCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
