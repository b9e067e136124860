// Package registry implements the store registry: developer accounts and
// sessions, published games with their version history, ratings and
// download counters.
//
// All state lives in one document guarded by one mutex. Every mutation is
// applied in memory and the whole document is rewritten before the lock is
// released.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/dependencies/clock"
	"github.com/mcoot/gamehub/internal/dependencies/random"
	"github.com/mcoot/gamehub/internal/model"
	"github.com/mcoot/gamehub/internal/password"
	"github.com/mcoot/gamehub/internal/storage"
)

// DocumentName is the name the registry document is stored under
const DocumentName = "registry"

const stagingDir = ".staging"

type document struct {
	Developers      map[string]*model.DeveloperAccount `json:"developers"`
	Games           map[string]*model.Game             `json:"games"`
	PlayerDownloads map[string]map[string]string       `json:"player_downloads"`
}

// Config holds configuration for the registry service
type Config struct {
	// StorageRoot is where archives and extracted bundles are kept
	StorageRoot string
	// ManifestCacheSize bounds the parsed-manifest cache used by LaunchInfo
	ManifestCacheSize int
	// MaxBundleBytes bounds the unpacked size of an upload
	MaxBundleBytes int64
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{
		StorageRoot:       "uploaded_games",
		ManifestCacheSize: 128,
		MaxBundleBytes:    256 << 20,
	}
}

// Service owns every developer, game, version and rating record
type Service struct {
	store  storage.DocumentStore
	hasher password.Hasher
	clock  clock.Clock
	random random.Random
	logger *zap.Logger

	root      string
	maxBundle int64
	manifests *lru.Cache[string, model.Manifest]

	mu       sync.Mutex
	doc      document
	sessions map[string]string // username -> current token
}

// New loads the registry document, creating an empty one if absent, and
// prepares the storage root
func New(
	ctx context.Context,
	store storage.DocumentStore,
	hasher password.Hasher,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *zap.Logger,
) (*Service, error) {
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = DefaultConfig().StorageRoot
	}
	if cfg.ManifestCacheSize <= 0 {
		cfg.ManifestCacheSize = DefaultConfig().ManifestCacheSize
	}
	if cfg.MaxBundleBytes <= 0 {
		cfg.MaxBundleBytes = DefaultConfig().MaxBundleBytes
	}

	root, err := filepath.Abs(cfg.StorageRoot)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	cache, err := lru.New[string, model.Manifest](cfg.ManifestCacheSize)
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:     store,
		hasher:    hasher,
		clock:     clock,
		random:    random,
		logger:    logger.Named("registry"),
		root:      root,
		maxBundle: cfg.MaxBundleBytes,
		manifests: cache,
		sessions:  make(map[string]string),
	}

	err = store.Load(ctx, DocumentName, &s.doc)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.doc.init()
		if err := s.persist(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("load registry document: %w", err)
	default:
		s.doc.init()
	}

	s.logger.Info("registry loaded",
		zap.Int("developers", len(s.doc.Developers)),
		zap.Int("games", len(s.doc.Games)),
		zap.String("storage_root", root),
	)
	return s, nil
}

func (d *document) init() {
	if d.Developers == nil {
		d.Developers = make(map[string]*model.DeveloperAccount)
	}
	if d.Games == nil {
		d.Games = make(map[string]*model.Game)
	}
	if d.PlayerDownloads == nil {
		d.PlayerDownloads = make(map[string]map[string]string)
	}
}

// persist rewrites the whole document. Callers hold s.mu.
func (s *Service) persist(ctx context.Context) error {
	if err := s.store.Save(ctx, DocumentName, &s.doc); err != nil {
		s.logger.Error("persist registry document", zap.Error(err))
		return fmt.Errorf("persist registry: %w", err)
	}
	return nil
}

// StorageRoot returns the absolute directory holding bundles
func (s *Service) StorageRoot() string {
	return s.root
}

func cloneGame(g *model.Game) model.Game {
	c := *g
	c.Versions = append([]model.Version(nil), g.Versions...)
	c.Ratings = append([]model.Rating(nil), g.Ratings...)
	return c
}
