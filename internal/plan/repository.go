package plan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrPlanNotFound indicates there is no plan to work from.
var ErrPlanNotFound = errors.New("plan not found")

// Repository loads and rewrites the plan.
type Repository interface {
	// Read returns the full plan text or ErrPlanNotFound.
	Read(ctx context.Context) (string, error)

	// MarkComplete replaces every literal occurrence of original with
	// updated and rewrites the whole plan.
	MarkComplete(ctx context.Context, original, updated string) error
}

// FileRepository stores the plan in a single file.
//
// Reads and writes are whole-file with no locking across processes;
// concurrent runs against the same file are last-writer-wins.
type FileRepository struct {
	path string
}

// NewFileRepository returns a repository for the plan at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the plan file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Read implements Repository.
func (r *FileRepository) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", r.path, ErrPlanNotFound)
		}
		return "", fmt.Errorf("failed to read plan %s: %w", r.path, err)
	}
	return string(data), nil
}

// MarkComplete implements Repository.
func (r *FileRepository) MarkComplete(ctx context.Context, original, updated string) error {
	content, err := r.Read(ctx)
	if err != nil {
		return err
	}

	mode := fs.FileMode(0644)
	if info, err := os.Stat(r.path); err == nil {
		mode = info.Mode().Perm()
	}

	if err := os.WriteFile(r.path, []byte(apply(content, original, updated)), mode); err != nil {
		return fmt.Errorf("failed to write plan %s: %w", filepath.Clean(r.path), err)
	}
	return nil
}

// MemoryRepository keeps the plan in memory. A nil text means no plan.
type MemoryRepository struct {
	mu     sync.Mutex
	text   *string
	writes int
}

// NewMemoryRepository returns a repository holding text.
func NewMemoryRepository(text string) *MemoryRepository {
	return &MemoryRepository{text: &text}
}

// NewEmptyMemoryRepository returns a repository with no plan.
func NewEmptyMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Read implements Repository.
func (r *MemoryRepository) Read(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.text == nil {
		return "", ErrPlanNotFound
	}
	return *r.text, nil
}

// MarkComplete implements Repository.
func (r *MemoryRepository) MarkComplete(_ context.Context, original, updated string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.text == nil {
		return ErrPlanNotFound
	}
	next := apply(*r.text, original, updated)
	r.text = &next
	r.writes++
	return nil
}

// Writes returns how many times the plan was rewritten.
func (r *MemoryRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

var (
	_ Repository = (*FileRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
