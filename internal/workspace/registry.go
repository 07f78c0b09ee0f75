package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Registry owns the current workspace root. It is the only in-memory mutable
// state shared between requests.
type Registry struct {
	mu   sync.RWMutex
	root string
}

// NewRegistry returns a registry with no root configured.
func NewRegistry() *Registry {
	return &Registry{}
}

// Get returns the current root and whether one is set.
func (r *Registry) Get() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root, r.root != ""
}

// Root returns the current root or ErrNotConfigured.
func (r *Registry) Root() (string, error) {
	root, ok := r.Get()
	if !ok {
		return "", ErrNotConfigured
	}
	return root, nil
}

// Set replaces the root. A path that is empty or not an existing directory is
// rejected with ErrInvalidPath and leaves the registry unset.
func (r *Registry) Set(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path == "" {
		r.root = ""
		return fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		r.root = ""
		return fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		r.root = ""
		return fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	r.root = abs
	log.Info("Workspace root set: %s", abs)
	return nil
}

// Clear unsets the root.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.root = ""
}
