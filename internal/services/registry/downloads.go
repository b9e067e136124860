package registry

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/model"
)

// UnknownPlayer is recorded as the downloader when none is given
const UnknownPlayer = "unknown"

// Download is a resolved version together with its archive bytes
type Download struct {
	GameID  string
	Version string
	Archive []byte
}

// DownloadGame returns the archive of the requested version, or of the latest
// one when version is empty, and records the download against player. Removed
// games are only served when the version is named explicitly.
func (s *Service) DownloadGame(ctx context.Context, gameID, version, player string) (Download, error) {
	if player == "" {
		player = UnknownPlayer
	}

	s.mu.Lock()
	g, ok := s.doc.Games[gameID]
	if !ok || (g.Removed && version == "") {
		s.mu.Unlock()
		return Download{}, model.ErrNoSuchGame
	}
	v, err := g.ResolveVersion(version)
	s.mu.Unlock()
	if err != nil {
		return Download{}, err
	}

	// Committed artifacts are immutable, so the read happens outside the lock
	blob, err := os.ReadFile(v.ArchivePath)
	if err != nil {
		s.logger.Warn("archive missing", zap.String("game_id", gameID), zap.String("version", v.Version), zap.Error(err))
		return Download{}, model.ErrFileMissing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	downloads, ok := s.doc.PlayerDownloads[player]
	if !ok {
		downloads = make(map[string]string)
		s.doc.PlayerDownloads[player] = downloads
	}
	previous, hadPrevious := downloads[gameID]
	downloads[gameID] = v.Version
	if g, ok := s.doc.Games[gameID]; ok {
		g.DownloadCount++
	}

	if err := s.persist(ctx); err != nil {
		if hadPrevious {
			downloads[gameID] = previous
		} else {
			delete(downloads, gameID)
		}
		if g, ok := s.doc.Games[gameID]; ok {
			g.DownloadCount--
		}
		return Download{}, err
	}

	s.logger.Info("version downloaded",
		zap.String("game_id", gameID),
		zap.String("version", v.Version),
		zap.String("player", player),
		zap.String("size", humanize.Bytes(uint64(len(blob)))),
	)
	return Download{GameID: gameID, Version: v.Version, Archive: blob}, nil
}

// RecordRating appends a rating from a player who has downloaded the game
func (s *Service) RecordRating(ctx context.Context, player, gameID string, score int, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.doc.Games[gameID]
	if !ok || g.Removed {
		return model.ErrNoSuchGame
	}
	if _, ok := s.doc.PlayerDownloads[player][gameID]; !ok {
		return model.ErrNeedDownloadFirst
	}
	if score < 1 || score > 5 {
		return model.ErrBadScore
	}

	g.Ratings = append(g.Ratings, model.Rating{
		User:    player,
		Score:   score,
		Comment: comment,
		At:      s.clock.Now(),
	})
	if err := s.persist(ctx); err != nil {
		g.Ratings = g.Ratings[:len(g.Ratings)-1]
		return err
	}

	s.logger.Info("rating recorded", zap.String("game_id", gameID), zap.String("player", player), zap.Int("score", score))
	return nil
}
