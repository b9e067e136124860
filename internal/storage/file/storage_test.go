package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamehub/internal/storage"
	"github.com/mcoot/gamehub/internal/storage/storagetest"
)

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		Open: func() storage.DocumentStore {
			s, err := New(t.TempDir())
			require.NoError(t, err)
			return s
		},
	})
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(context.Background(), "lobby", map[string]int{"n": i}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "lobby.json", entries[0].Name())
}

func TestLoadCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.json"), []byte("{"), 0o644))
	s, err := New(dir)
	require.NoError(t, err)

	var doc map[string]any
	err = s.Load(context.Background(), "registry", &doc)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}
