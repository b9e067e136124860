// Package config loads server configuration from defaults, an optional YAML
// file, a .env file and GAMEHUB_STORE_* / GAMEHUB_LOBBY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// StorageConfig selects where a server keeps its document
type StorageConfig struct {
	Backend    string `mapstructure:"storage_backend"`
	DataDir    string `mapstructure:"data_dir"`
	RedisURL   string `mapstructure:"redis_url"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// StoreConfig configures the registry server
type StoreConfig struct {
	StorageConfig     `mapstructure:",squash"`
	ListenAddr        string `mapstructure:"listen_addr"`
	OpsAddr           string `mapstructure:"ops_addr"`
	StorageRoot       string `mapstructure:"storage_root"`
	PasswordScheme    string `mapstructure:"password_scheme"`
	ManifestCacheSize int    `mapstructure:"manifest_cache_size"`
	MaxBundleBytes    int64  `mapstructure:"max_bundle_bytes"`
	LogLevel          string `mapstructure:"log_level"`
}

// LobbyConfig configures the orchestrator server
type LobbyConfig struct {
	StorageConfig  `mapstructure:",squash"`
	ListenAddr     string        `mapstructure:"listen_addr"`
	OpsAddr        string        `mapstructure:"ops_addr"`
	StoreAddr      string        `mapstructure:"store_addr"`
	GameHost       string        `mapstructure:"game_host"`
	GameBindHost   string        `mapstructure:"game_bind_host"`
	PortBase       int           `mapstructure:"port_base"`
	PortCeiling    int           `mapstructure:"port_ceiling"`
	ReadyDelay     time.Duration `mapstructure:"ready_delay"`
	DefaultRuntime string        `mapstructure:"default_runtime"`
	RPCTimeout     time.Duration `mapstructure:"rpc_timeout"`
	PasswordScheme string        `mapstructure:"password_scheme"`
	LogLevel       string        `mapstructure:"log_level"`
}

// DefaultStoreConfig returns the registry defaults
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		StorageConfig: StorageConfig{
			Backend:    BackendFile,
			DataDir:    "data",
			RedisURL:   "redis://localhost:6379",
			SQLitePath: "data/store.db",
		},
		ListenAddr:        "0.0.0.0:17080",
		StorageRoot:       "uploaded_games",
		PasswordScheme:    "sha256",
		ManifestCacheSize: 128,
		MaxBundleBytes:    256 << 20,
		LogLevel:          "info",
	}
}

// DefaultLobbyConfig returns the orchestrator defaults
func DefaultLobbyConfig() LobbyConfig {
	return LobbyConfig{
		StorageConfig: StorageConfig{
			Backend:    BackendFile,
			DataDir:    "data",
			RedisURL:   "redis://localhost:6379",
			SQLitePath: "data/lobby.db",
		},
		ListenAddr:     "0.0.0.0:18080",
		StoreAddr:      "127.0.0.1:17080",
		GameHost:       "127.0.0.1",
		GameBindHost:   "0.0.0.0",
		PortBase:       19100,
		PortCeiling:    65000,
		ReadyDelay:     500 * time.Millisecond,
		DefaultRuntime: "python3",
		RPCTimeout:     5 * time.Second,
		PasswordScheme: "sha256",
		LogLevel:       "info",
	}
}

// LoadStore reads the registry configuration. path may be empty.
func LoadStore(path string) (StoreConfig, error) {
	cfg := DefaultStoreConfig()
	err := load(path, "GAMEHUB_STORE", map[string]any{
		"storage_backend":     cfg.Backend,
		"data_dir":            cfg.DataDir,
		"redis_url":           cfg.RedisURL,
		"sqlite_path":         cfg.SQLitePath,
		"listen_addr":         cfg.ListenAddr,
		"ops_addr":            cfg.OpsAddr,
		"storage_root":        cfg.StorageRoot,
		"password_scheme":     cfg.PasswordScheme,
		"manifest_cache_size": cfg.ManifestCacheSize,
		"max_bundle_bytes":    cfg.MaxBundleBytes,
		"log_level":           cfg.LogLevel,
	}, &cfg)
	return cfg, err
}

// LoadLobby reads the orchestrator configuration. path may be empty.
func LoadLobby(path string) (LobbyConfig, error) {
	cfg := DefaultLobbyConfig()
	err := load(path, "GAMEHUB_LOBBY", map[string]any{
		"storage_backend": cfg.Backend,
		"data_dir":        cfg.DataDir,
		"redis_url":       cfg.RedisURL,
		"sqlite_path":     cfg.SQLitePath,
		"listen_addr":     cfg.ListenAddr,
		"ops_addr":        cfg.OpsAddr,
		"store_addr":      cfg.StoreAddr,
		"game_host":       cfg.GameHost,
		"game_bind_host":  cfg.GameBindHost,
		"port_base":       cfg.PortBase,
		"port_ceiling":    cfg.PortCeiling,
		"ready_delay":     cfg.ReadyDelay,
		"default_runtime": cfg.DefaultRuntime,
		"rpc_timeout":     cfg.RPCTimeout,
		"password_scheme": cfg.PasswordScheme,
		"log_level":       cfg.LogLevel,
	}, &cfg)
	if err != nil {
		return cfg, err
	}
	if cfg.PortBase <= 0 || cfg.PortBase > 65535 || cfg.PortCeiling < cfg.PortBase {
		return cfg, fmt.Errorf("invalid port range %d-%d", cfg.PortBase, cfg.PortCeiling)
	}
	return cfg, nil
}

func load(path, envPrefix string, defaults map[string]any, out any) error {
	// A missing .env file is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}
