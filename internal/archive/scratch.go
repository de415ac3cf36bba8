package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// scratch hands out uniquely named extraction directories below root and
// remembers each one for cleanup.
type scratch struct {
	root string

	mu   sync.Mutex
	dirs []string
}

func newScratch(root string) *scratch {
	return &scratch{root: root}
}

// New creates a fresh directory.
func (s *scratch) New() (string, error) {
	for {
		dir := filepath.Join(s.root, uuid.NewString())
		if err := os.MkdirAll(s.root, 0o755); err != nil {
			return "", fmt.Errorf("create scratch root: %w", err)
		}
		err := os.Mkdir(dir, 0o755)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create scratch directory: %w", err)
		}
		s.mu.Lock()
		s.dirs = append(s.dirs, dir)
		s.mu.Unlock()
		return dir, nil
	}
}

// Cleanup removes every directory handed out. Directories already moved
// away are gone and ignored.
func (s *scratch) Cleanup() error {
	s.mu.Lock()
	dirs := s.dirs
	s.dirs = nil
	s.mu.Unlock()

	var errs []error
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	// Only succeeds once the root is empty.
	_ = os.Remove(s.root)
	return errors.Join(errs...)
}
