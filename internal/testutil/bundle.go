package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcoot/gamehub/internal/archive"
)

// ManifestOptions describes a game_config.json for test bundles
type ManifestOptions struct {
	ServerEntry string
	ClientEntry string
	MinPlayers  int
	MaxPlayers  int
	Runtime     string
	Name        string
}

// Manifest renders a game_config.json body
func Manifest(t testing.TB, opts ManifestOptions) string {
	t.Helper()
	m := map[string]any{
		"server_entry": opts.ServerEntry,
		"client_entry": opts.ClientEntry,
	}
	if opts.MinPlayers > 0 {
		m["min_players"] = opts.MinPlayers
	}
	if opts.MaxPlayers > 0 {
		m["max_players"] = opts.MaxPlayers
	}
	if opts.Runtime != "" {
		m["runtime"] = opts.Runtime
	}
	if opts.Name != "" {
		m["name"] = opts.Name
	}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return string(raw)
}

// Bundle zips the given files into an archive
func Bundle(t testing.TB, files map[string]string) []byte {
	t.Helper()
	blob, err := archive.PackFiles(files)
	require.NoError(t, err)
	return blob
}

// ValidBundle returns a two-file bundle with server.py and client.py entries
// plus its manifest
func ValidBundle(t testing.TB) []byte {
	t.Helper()
	return Bundle(t, map[string]string{
		"game_config.json": Manifest(t, ManifestOptions{
			ServerEntry: "server.py",
			ClientEntry: "client.py",
			MinPlayers:  2,
			MaxPlayers:  2,
		}),
		"server.py": "print('server')\n",
		"client.py": "print('client')\n",
	})
}

// ScriptBundle returns a bundle whose server entry is a shell script run by
// /bin/sh
func ScriptBundle(t testing.TB, script string, minPlayers, maxPlayers int) []byte {
	t.Helper()
	return Bundle(t, map[string]string{
		"game_config.json": Manifest(t, ManifestOptions{
			ServerEntry: "server.sh",
			ClientEntry: "client.sh",
			MinPlayers:  minPlayers,
			MaxPlayers:  maxPlayers,
			Runtime:     "/bin/sh",
		}),
		"server.sh": script,
		"client.sh": "exit 0\n",
	})
}
