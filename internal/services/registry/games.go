package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/archive"
	"github.com/mcoot/gamehub/internal/model"
)

// UploadRequest describes a new version of a game. Empty fields fall back to
// the bundle manifest and then to defaults.
type UploadRequest struct {
	GameID      string
	Name        string
	Version     string
	Description string
	GameType    string
	MaxPlayers  int
	Archive     []byte
}

// UploadResult identifies the committed version
type UploadResult struct {
	GameID  string
	Version string
}

// ListOptions filters ListGames
type ListOptions struct {
	Author         string
	IncludeRemoved bool
}

// UploadGame validates and commits a new game version owned by the session's
// developer. Nothing is left on disk when the upload is rejected.
func (s *Service) UploadGame(ctx context.Context, sess model.DeveloperSession, req UploadRequest) (UploadResult, error) {
	if err := s.ValidateSession(sess); err != nil {
		return UploadResult{}, err
	}
	if len(req.Archive) == 0 {
		return UploadResult{}, model.ErrNoArchive
	}
	if req.MaxPlayers < 0 {
		return UploadResult{}, &model.FieldError{Field: "max_players"}
	}

	gameID := req.GameID
	if gameID == "" {
		gameID = Slugify(req.Name)
	}
	version := req.Version
	if version == "" {
		version = fmt.Sprintf("v%d", s.clock.Now().Unix())
	}
	if !validPathSegment(gameID) {
		return UploadResult{}, &model.FieldError{Field: "game_id"}
	}
	if !validPathSegment(version) {
		return UploadResult{}, &model.FieldError{Field: "version"}
	}

	logger := s.logger.With(
		zap.String("user", sess.Username),
		zap.String("game_id", gameID),
		zap.String("version", version),
	)

	// Reject conflicts before anything touches disk
	s.mu.Lock()
	err := s.checkUploadLocked(sess.Username, gameID, version)
	s.mu.Unlock()
	if err != nil {
		return UploadResult{}, err
	}

	staging := filepath.Join(s.root, stagingDir, s.random.Token())
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			logger.Warn("remove staging directory", zap.Error(err))
		}
	}()

	stagedZip := filepath.Join(staging, "bundle.zip")
	stagedDir := filepath.Join(staging, "bundle")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return UploadResult{}, fmt.Errorf("create staging directory: %w", err)
	}
	if err := os.WriteFile(stagedZip, req.Archive, 0o644); err != nil {
		return UploadResult{}, fmt.Errorf("write archive: %w", err)
	}
	if err := archive.Extract(stagedZip, stagedDir, s.maxBundle); err != nil {
		logger.Warn("unpack failed", zap.Error(err))
		return UploadResult{}, model.ErrUnpackFail
	}

	manifest, err := validateBundle(stagedDir)
	if err != nil {
		logger.Info("bundle rejected", zap.Error(err))
		return UploadResult{}, err
	}

	name := firstNonEmpty(req.Name, manifest.Name)
	description := firstNonEmpty(req.Description, manifest.Description)
	gameType := firstNonEmpty(req.GameType, manifest.Type, model.DefaultGameType)
	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = manifest.MaxPlayers
	}
	if maxPlayers == 0 {
		maxPlayers = model.DefaultMaxPlayers
	}
	if maxPlayers < 1 {
		return UploadResult{}, &model.FieldError{Field: "max_players"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another upload may have committed the same version meanwhile
	if err := s.checkUploadLocked(sess.Username, gameID, version); err != nil {
		return UploadResult{}, err
	}
	if err := s.validateSessionLocked(sess); err != nil {
		return UploadResult{}, err
	}

	finalDir := filepath.Join(s.root, gameID, version)
	finalZip := filepath.Join(s.root, gameID, version+".zip")
	if err := s.moveIntoPlace(stagedDir, stagedZip, finalDir, finalZip); err != nil {
		return UploadResult{}, err
	}

	existing, exists := s.doc.Games[gameID]
	var previous model.Game
	if exists {
		previous = cloneGame(existing)
	} else {
		existing = &model.Game{
			ID:      gameID,
			Author:  sess.Username,
			Ratings: []model.Rating{},
		}
		s.doc.Games[gameID] = existing
	}
	existing.Name = firstNonEmpty(name, existing.Name, gameID)
	existing.Description = firstNonEmpty(description, existing.Description)
	existing.GameType = gameType
	existing.MaxPlayers = maxPlayers
	existing.Removed = false
	existing.LatestVersion = version
	existing.Versions = append(existing.Versions, model.Version{
		Version:       version,
		ExtractedPath: finalDir,
		ArchivePath:   finalZip,
		UploadedAt:    s.clock.Now(),
	})

	if err := s.persist(ctx); err != nil {
		if exists {
			*existing = previous
		} else {
			delete(s.doc.Games, gameID)
		}
		return UploadResult{}, multierr.Combine(err, os.RemoveAll(finalDir), os.Remove(finalZip))
	}

	logger.Info("version uploaded",
		zap.String("size", humanize.Bytes(uint64(len(req.Archive)))),
		zap.Int("version_count", len(existing.Versions)),
	)
	return UploadResult{GameID: gameID, Version: version}, nil
}

func (s *Service) checkUploadLocked(user, gameID, version string) error {
	g, ok := s.doc.Games[gameID]
	if !ok {
		return nil
	}
	if g.Author != user {
		return model.ErrNotOwner
	}
	if g.HasVersion(version) {
		return model.ErrVersionExists
	}
	return nil
}

// moveIntoPlace renames the staged bundle into its versioned location,
// replacing leftovers of an uncommitted earlier attempt
func (s *Service) moveIntoPlace(stagedDir, stagedZip, finalDir, finalZip string) error {
	if err := os.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return err
	}
	if err := multierr.Combine(os.RemoveAll(finalDir), removeIfExists(finalZip)); err != nil {
		return fmt.Errorf("clear stale artifacts: %w", err)
	}
	if err := os.Rename(stagedDir, finalDir); err != nil {
		return fmt.Errorf("commit bundle: %w", err)
	}
	if err := os.Rename(stagedZip, finalZip); err != nil {
		return multierr.Append(fmt.Errorf("commit archive: %w", err), os.RemoveAll(finalDir))
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveGame soft-deletes a game owned by the session's developer
func (s *Service) RemoveGame(ctx context.Context, sess model.DeveloperSession, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateSessionLocked(sess); err != nil {
		return err
	}
	g, ok := s.doc.Games[gameID]
	if !ok {
		return model.ErrNoSuchGame
	}
	if g.Author != sess.Username {
		return model.ErrNotOwner
	}
	if g.Removed {
		return nil
	}

	g.Removed = true
	if err := s.persist(ctx); err != nil {
		g.Removed = false
		return err
	}
	s.logger.Info("game removed", zap.String("user", sess.Username), zap.String("game_id", gameID))
	return nil
}

// ListGames returns copies of the matching games ordered by id
func (s *Service) ListGames(opts ListOptions) []model.Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	games := make([]model.Game, 0, len(s.doc.Games))
	for _, g := range s.doc.Games {
		if opts.Author != "" && g.Author != opts.Author {
			continue
		}
		if g.Removed && !opts.IncludeRemoved {
			continue
		}
		games = append(games, cloneGame(g))
	}
	slices.SortFunc(games, func(a, b model.Game) int { return strings.Compare(a.ID, b.ID) })
	return games
}

// GameDetail returns a copy of a published game
func (s *Service) GameDetail(gameID string) (model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.doc.Games[gameID]
	if !ok || g.Removed {
		return model.Game{}, model.ErrNoSuchGame
	}
	return cloneGame(g), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
