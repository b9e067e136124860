package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no document has been saved under a name
var ErrNotFound = errors.New("document not found")

// DocumentStore persists whole JSON documents by name. Every Save replaces
// the previous document in full; a reader never observes a partial write.
type DocumentStore interface {
	// Load decodes the named document into v
	Load(ctx context.Context, name string, v any) error
	// Save replaces the named document with the JSON encoding of v
	Save(ctx context.Context, name string, v any) error
	Close() error
}
