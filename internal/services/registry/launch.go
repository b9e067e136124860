package registry

import (
	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/model"
)

// LaunchInfo resolves how to start a server for the requested version, or
// the latest version when version is empty
func (s *Service) LaunchInfo(gameID, version string) (model.LaunchInfo, error) {
	s.mu.Lock()
	g, ok := s.doc.Games[gameID]
	if !ok || g.Removed {
		s.mu.Unlock()
		return model.LaunchInfo{}, model.ErrNoSuchGame
	}
	v, err := g.ResolveVersion(version)
	game := cloneGame(g)
	s.mu.Unlock()
	if err != nil {
		return model.LaunchInfo{}, err
	}

	manifest := s.manifest(v.ExtractedPath)

	info := model.LaunchInfo{
		GameID:      gameID,
		Version:     v.Version,
		Path:        v.ExtractedPath,
		ServerEntry: firstNonEmpty(manifest.ServerEntry, model.DefaultServerEntry),
		ClientEntry: firstNonEmpty(manifest.ClientEntry, model.DefaultClientEntry),
		GameType:    firstNonEmpty(game.GameType, model.DefaultGameType),
		MaxPlayers:  game.MaxPlayers,
		MinPlayers:  manifest.MinPlayers,
		Name:        firstNonEmpty(game.Name, gameID),
		Runtime:     manifest.Runtime,
	}
	if info.MaxPlayers == 0 {
		info.MaxPlayers = model.DefaultMaxPlayers
	}
	if info.MinPlayers == 0 {
		info.MinPlayers = model.DefaultMinPlayers
	}
	return info, nil
}

// manifest returns the parsed manifest of an extracted version. An unreadable
// manifest yields the zero value so defaults apply.
func (s *Service) manifest(path string) model.Manifest {
	if m, ok := s.manifests.Get(path); ok {
		return m
	}
	m, err := readManifest(path)
	if err != nil {
		s.logger.Warn("read manifest", zap.String("path", path), zap.Error(err))
		return model.Manifest{}
	}
	s.manifests.Add(path, m)
	return m
}
