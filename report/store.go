package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes rendered documents under a local artifact directory.
type Store struct {
	dir string
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "documents"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the document and returns its path relative to the process.
func (s *Store) Save(name string, data []byte) (string, error) {
	name = filepath.Base(name)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write document %s: %w", name, err)
	}
	return path, nil
}

// Remove deletes a previously stored document. Paths outside the artifact
// directory are refused; a missing file is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	clean := filepath.Clean(path)
	rel, err := filepath.Rel(s.dir, clean)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("document path %s outside store", path)
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
