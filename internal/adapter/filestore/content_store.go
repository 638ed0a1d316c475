package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rubric-orchestrator/internal/domain"
)

const partialSuffix = ".partial"

// ContentStore serves ingested source files by name for citation links.
type ContentStore struct {
	dir string
}

// NewContentStore creates dir when it does not exist.
func NewContentStore(dir string) (*ContentStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	return &ContentStore{dir: dir}, nil
}

// Put replaces name atomically.
func (s *ContentStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.dir, "*"+partialSuffix)
	if err != nil {
		return fmt.Errorf("create content file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("write content file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("close content file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("publish content file: %w", err)
	}
	return nil
}

func (s *ContentStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	return data, nil
}

// Remove is idempotent.
func (s *ContentStore) Remove(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove content file: %w", err)
	}
	return nil
}

func (s *ContentStore) RemoveAll(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list content dir: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove content file: %w", err)
		}
	}
	return nil
}

func (s *ContentStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.HasSuffix(name, partialSuffix) {
		return "", fmt.Errorf("%w: invalid content name %q", domain.ErrInvalidRequest, name)
	}
	return filepath.Join(s.dir, name), nil
}

var _ domain.ContentStore = (*ContentStore)(nil)
