package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps each device's id in a small file under dir.
type FileStore struct {
	dir string
}

// NewFileStore stores ids below dir, creating it on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(device string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(slotKey(device))
	return filepath.Join(s.dir, name)
}

func (s *FileStore) Get(_ context.Context, device string) (string, error) {
	data, err := os.ReadFile(s.path(device))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}
	return string(data), nil
}

func (s *FileStore) Set(_ context.Context, device, id string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path(device), []byte(id), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
