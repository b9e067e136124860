package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestPackFilesThenExtract(t *testing.T) {
	data, err := PackFiles(map[string]string{
		"game_config.json": `{"server_entry":"server.py","client_entry":"client.py"}`,
		"lib/util.py":      "x = 1\n",
	})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Extract(writeArchive(t, data), dest, 0))

	got, err := os.ReadFile(filepath.Join(dest, "lib", "util.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(got))
	assert.FileExists(t, filepath.Join(dest, "game_config.json"))
}

func TestPackDirectoryPreservesLayout(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "server.sh"), []byte("exit 0\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "assets", "a.txt"), []byte("a"), 0o644))

	data, err := Pack(src)
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, Extract(writeArchive(t, data), dest, 0))

	info, err := os.Stat(filepath.Join(dest, "server.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	assert.FileExists(t, filepath.Join(dest, "assets", "a.txt"))
}

func TestExtractRejectsTraversal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	fw, err := w.Create("../escape.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("nope"))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(t.TempDir(), "out")
	err = Extract(path, dest, 0)
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape.txt"))
}

func TestExtractRejectsGarbage(t *testing.T) {
	err := Extract(writeArchive(t, []byte("not a zip")), t.TempDir(), 0)
	assert.Error(t, err)
}

func TestExtractStopsAtLimit(t *testing.T) {
	data, err := PackFiles(map[string]string{
		"a.txt": strings.Repeat("a", 600),
		"b.txt": strings.Repeat("b", 600),
	})
	require.NoError(t, err)
	path := writeArchive(t, data)

	err = Extract(path, filepath.Join(t.TempDir(), "small"), 1000)
	assert.ErrorIs(t, err, ErrTooLarge)

	require.NoError(t, Extract(path, filepath.Join(t.TempDir(), "exact"), 1200))
}
