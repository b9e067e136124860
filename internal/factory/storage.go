package factory

import (
	"fmt"
	"path/filepath"

	"github.com/mcoot/gamehub/internal/config"
	"github.com/mcoot/gamehub/internal/storage"
	"github.com/mcoot/gamehub/internal/storage/file"
	"github.com/mcoot/gamehub/internal/storage/memory"
	redisstorage "github.com/mcoot/gamehub/internal/storage/redis"
	"github.com/mcoot/gamehub/internal/storage/sqlite"
)

// OpenStorage creates the document store selected by cfg
func OpenStorage(cfg config.StorageConfig) (storage.DocumentStore, error) {
	switch cfg.Backend {
	case "", config.BackendFile:
		return file.New(filepath.Clean(cfg.DataDir))
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		return redisstorage.New(redisCfg)
	case config.BackendSQLite:
		return sqlite.New(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("invalid storage backend %q: must be one of file, memory, redis, sqlite", cfg.Backend)
	}
}
