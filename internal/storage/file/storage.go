// Package file stores each document as an indented JSON file, replaced
// atomically on every save (write to a temp file, then rename).
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/mcoot/gamehub/internal/storage"
)

// Storage keeps documents under a directory as <name>.json
type Storage struct {
	dir string
}

// New creates the directory if needed and returns a store rooted there
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

var _ storage.DocumentStore = (*Storage)(nil)

// Path returns the file backing a document
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Storage) Load(ctx context.Context, name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", s.Path(name), err)
	}
	return nil
}

func (s *Storage) Save(ctx context.Context, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(s.Path(name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	return nil
}

func (s *Storage) Close() error { return nil }
