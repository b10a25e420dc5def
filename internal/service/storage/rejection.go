package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// RejectionStore keeps frames an operator discarded.
type RejectionStore struct {
	dir string
}

// NewRejectionStore creates the rejection directory if needed.
func NewRejectionStore(dir string) (*RejectionStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create rejection directory: %w", err)
	}
	return &RejectionStore{dir: dir}, nil
}

// Dir returns the rejection directory.
func (s *RejectionStore) Dir() string {
	return s.dir
}

// Accept moves src into the store under filename.
func (s *RejectionStore) Accept(src, filename string) error {
	if err := MoveFile(src, filepath.Join(s.dir, filename)); err != nil {
		return fmt.Errorf("reject %s: %w", filename, err)
	}
	return nil
}

// Has reports whether filename was rejected.
func (s *RejectionStore) Has(filename string) bool {
	_, err := os.Stat(filepath.Join(s.dir, filename))
	return err == nil
}

// Count returns the number of rejected frames.
func (s *RejectionStore) Count() (int, error) {
	names, err := listFiles(s.dir, IsImage)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}
