// Package storagetest holds the behaviour every DocumentStore must share.
package storagetest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamehub/internal/storage"
)

type sampleDoc struct {
	Users map[string]int `json:"users"`
	Note  string         `json:"note"`
}

// Suite runs the DocumentStore contract against the store built by Open
type Suite struct {
	suite.Suite
	Open  func() storage.DocumentStore
	store storage.DocumentStore
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.store = s.Open()
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *Suite) TestLoadMissingDocument() {
	var doc sampleDoc
	err := s.store.Load(s.ctx, "registry", &doc)
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestSaveThenLoad() {
	in := sampleDoc{Users: map[string]int{"d1": 1}, Note: "first"}
	s.Require().NoError(s.store.Save(s.ctx, "registry", in))

	var out sampleDoc
	s.Require().NoError(s.store.Load(s.ctx, "registry", &out))
	s.Equal(in, out)
}

func (s *Suite) TestSaveReplacesWholeDocument() {
	s.Require().NoError(s.store.Save(s.ctx, "registry", sampleDoc{Users: map[string]int{"a": 1, "b": 2}}))
	s.Require().NoError(s.store.Save(s.ctx, "registry", sampleDoc{Users: map[string]int{"c": 3}}))

	var out sampleDoc
	s.Require().NoError(s.store.Load(s.ctx, "registry", &out))
	s.Equal(map[string]int{"c": 3}, out.Users)
}

func (s *Suite) TestDocumentsAreIndependent() {
	s.Require().NoError(s.store.Save(s.ctx, "registry", sampleDoc{Note: "registry"}))
	s.Require().NoError(s.store.Save(s.ctx, "lobby", sampleDoc{Note: "lobby"}))

	var reg, lob sampleDoc
	s.Require().NoError(s.store.Load(s.ctx, "registry", &reg))
	s.Require().NoError(s.store.Load(s.ctx, "lobby", &lob))
	s.Equal("registry", reg.Note)
	s.Equal("lobby", lob.Note)
}
