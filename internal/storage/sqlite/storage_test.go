package sqlite

import (
	"context"
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
			s, err := New(filepath.Join(t.TempDir(), "gamehub.db"))
			require.NoError(t, err)
			return s
		},
	})
}

func TestDocumentsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gamehub.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "registry", map[string]int{"games": 3}))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	var doc map[string]int
	require.NoError(t, s.Load(context.Background(), "registry", &doc))
	assert.Equal(t, 3, doc["games"])
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
