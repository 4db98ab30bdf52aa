// Package artifact persists the files the model asks to write.
//
// An artifact is identified by its filename and is fully overwritten on every
// save. Filenames are trusted as given: there is no sanitization and no
// path-traversal guard, so "../x" escapes the directory. Callers that accept
// untrusted names must check them first.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrArtifactNotFound indicates no artifact exists under the given name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Repository stores named text artifacts.
type Repository interface {
	// Save writes contents under filename, replacing any previous contents.
	Save(ctx context.Context, filename, contents string) error

	// Load returns the contents stored under filename.
	Load(ctx context.Context, filename string) (string, error)
}

// FileStore writes artifacts into a directory on disk.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the artifact directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns where filename is stored.
func (s *FileStore) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Save implements Repository.
func (s *FileStore) Save(ctx context.Context, filename, contents string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory %s: %w", s.dir, err)
	}
	if err := os.WriteFile(s.Path(filename), []byte(contents), 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", filename, err)
	}
	return nil
}

// Load implements Repository.
func (s *FileStore) Load(ctx context.Context, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.Path(filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", filename, ErrArtifactNotFound)
		}
		return "", fmt.Errorf("failed to read artifact %s: %w", filename, err)
	}
	return string(data), nil
}

// MemoryStore keeps artifacts in a map.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string]string
	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]string)}
}

// Save implements Repository.
func (s *MemoryStore) Save(_ context.Context, filename, contents string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[filename] = contents
	s.saves++
	return nil
}

// Load implements Repository.
func (s *MemoryStore) Load(_ context.Context, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contents, ok := s.files[filename]
	if !ok {
		return "", fmt.Errorf("%s: %w", filename, ErrArtifactNotFound)
	}
	return contents, nil
}

// Names returns the stored filenames in sorted order.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Saves returns how many writes the store has received.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var (
	_ Repository = (*FileStore)(nil)
	_ Repository = (*MemoryStore)(nil)
)
