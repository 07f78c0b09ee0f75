// Package trash implements recoverable deletion for the workspace.
//
// Deleted items are moved under <root>/.trash/<batch>/<relative path>, where
// batch is the UTC deletion time formatted as BatchFormat. The part after the
// batch segment is always the item's original path relative to the root, so a
// restore only has to strip the first segment.
package trash

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"markdesk-server/internal/fsutil"
	"markdesk-server/internal/logger"
	"markdesk-server/internal/observability"
	"markdesk-server/internal/workspace"
)

const (
	// DirName is the trash directory under the workspace root.
	DirName = ".trash"
	// BatchFormat names batch directories (UTC, second precision).
	BatchFormat = "20060102T150405Z"
)

var log = logger.WithComponent("TRASH")

type Store struct {
	registry *workspace.Registry
	guard    *workspace.Guard
	locks    *fsutil.Locker
	metrics  *observability.Metrics
	now      func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for batch names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocker shares a path lock table with other components that move files.
func WithLocker(l *fsutil.Locker) Option {
	return func(s *Store) { s.locks = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(registry *workspace.Registry, guard *workspace.Guard, opts ...Option) *Store {
	s := &Store{
		registry: registry,
		guard:    guard,
		locks:    fsutil.NewLocker(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTrash reports whether a root-relative, slash-separated path names the
// trash directory or something inside it.
func InTrash(rel string) bool {
	first, _, _ := strings.Cut(strings.TrimPrefix(rel, "/"), "/")
	return first == DirName
}

// SoftDelete moves the item at rel into a new (or the current second's) batch
// and returns its trash path "<batch>/<rel>".
func (s *Store) SoftDelete(ctx context.Context, rel string) (trashPath string, err error) {
	_, span := s.metrics.StartSpan(ctx, "trash_soft_delete")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	root, trashRoot, err := s.roots()
	if err != nil {
		return "", err
	}

	src, err := s.guard.Resolve(root, rel)
	if err != nil {
		return "", err
	}
	if err := s.guard.ValidateNotRoot(root, src); err != nil {
		return "", err
	}
	cleanRel, err := s.guard.Rel(root, src)
	if err != nil {
		return "", err
	}
	if InTrash(cleanRel) {
		return "", fmt.Errorf("%w: cannot delete %s through the workspace", ErrInvalidOperation, cleanRel)
	}

	batch := s.now().UTC().Format(BatchFormat)
	trashPath = batch + "/" + cleanRel
	dst, err := s.guard.Resolve(trashRoot, trashPath)
	if err != nil {
		return "", err
	}

	// The batch key keeps a restore or purge from removing the batch between
	// MkdirAll and the move below.
	unlock := s.locks.Lock(src, dst, filepath.Join(trashRoot, batch))
	defer unlock()

	if ok, err := fsutil.Exists(src); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, cleanRel)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("create trash batch: %w", err)
	}
	if err := fsutil.Move(src, dst); err != nil {
		if !errors.Is(err, fs.ErrExist) || !bothDirs(src, dst) {
			return "", moveError(err, cleanRel, trashPath)
		}
		// A child of this directory was trashed earlier in the same second.
		if err := merge(src, dst, trashPath); err != nil {
			return "", err
		}
	}

	log.Info("Moved to trash: %s -> %s", cleanRel, trashPath)
	return trashPath, nil
}

// List returns every file and directory under the trash root relative to it,
// directories suffixed with "/", sorted ascending. An unset workspace or a
// missing trash root yields an empty list.
func (s *Store) List(ctx context.Context) (entries []string, err error) {
	_, span := s.metrics.StartSpan(ctx, "trash_list")
	defer func() { span.End(err) }()

	entries = []string{}

	root, ok := s.registry.Get()
	if !ok {
		return entries, nil
	}
	trashRoot, err := s.guard.Resolve(root, DirName)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(trashRoot); err != nil || !info.IsDir() {
		return entries, nil
	}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, trashRoot, func(p string, d os.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Entries can disappear under a concurrent restore or purge.
		if err != nil || p == trashRoot {
			return nil
		}

		rel, err := filepath.Rel(trashRoot, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}

		mu.Lock()
		entries = append(entries, rel)
		mu.Unlock()
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("walk trash: %w", err)
	}

	sort.Strings(entries)
	return entries, nil
}

// Restore moves a trash entry back to its original location and returns that
// location relative to the root. It never overwrites: an occupied destination
// yields ErrConflict and leaves both sides untouched.
func (s *Store) Restore(ctx context.Context, trashPath string) (restored string, err error) {
	_, span := s.metrics.StartSpan(ctx, "trash_restore")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	root, trashRoot, err := s.roots()
	if err != nil {
		return "", err
	}

	entry, entryRel, err := s.resolveEntry(trashRoot, trashPath)
	if err != nil {
		return "", err
	}

	batch, original, found := strings.Cut(entryRel, "/")
	if !found {
		// A bare batch (or stray top-level entry) restores under its own name.
		original = batch
	}
	if InTrash(original) {
		return "", fmt.Errorf("%w: cannot restore into %s", ErrInvalidOperation, DirName)
	}

	dst, err := s.guard.Resolve(root, original)
	if err != nil {
		return "", err
	}
	if err := s.guard.ValidateNotRoot(root, dst); err != nil {
		return "", err
	}

	batchDir := filepath.Join(trashRoot, batch)
	unlock := s.locks.Lock(entry, dst, batchDir)
	defer unlock()

	if ok, err := fsutil.Exists(entry); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, entryRel)
	}
	if ok, err := fsutil.Exists(dst); err != nil {
		return "", err
	} else if ok {
		return "", fmt.Errorf("%w: %s", ErrConflict, original)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("create restore destination: %w", err)
	}
	if err := fsutil.Move(entry, dst); err != nil {
		return "", moveError(err, entryRel, original)
	}

	removeBatchIfEmpty(batchDir, entry)

	log.Info("Restored from trash: %s -> %s", entryRel, original)
	return original, nil
}

// Purge permanently removes one trash entry.
func (s *Store) Purge(ctx context.Context, trashPath string) (err error) {
	_, span := s.metrics.StartSpan(ctx, "trash_purge")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, trashRoot, err := s.roots()
	if err != nil {
		return err
	}

	entry, entryRel, err := s.resolveEntry(trashRoot, trashPath)
	if err != nil {
		return err
	}

	batch, _, _ := strings.Cut(entryRel, "/")
	batchDir := filepath.Join(trashRoot, batch)
	unlock := s.locks.Lock(entry, batchDir)
	defer unlock()

	if ok, err := fsutil.Exists(entry); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, entryRel)
	}
	if err := os.RemoveAll(entry); err != nil {
		return fmt.Errorf("purge %s: %w", entryRel, err)
	}

	removeBatchIfEmpty(batchDir, entry)

	log.Info("Purged from trash: %s", entryRel)
	return nil
}

// PurgeAll removes the trash root with everything in it and recreates it empty.
func (s *Store) PurgeAll(ctx context.Context) (err error) {
	_, span := s.metrics.StartSpan(ctx, "trash_purge_all")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, trashRoot, err := s.roots()
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(trashRoot)
	defer unlock()

	if err := os.RemoveAll(trashRoot); err != nil {
		return fmt.Errorf("empty trash: %w", err)
	}
	if err := os.MkdirAll(trashRoot, 0755); err != nil {
		return fmt.Errorf("recreate trash: %w", err)
	}

	log.Info("Trash emptied")
	return nil
}

func (s *Store) roots() (root, trashRoot string, err error) {
	root, err = s.registry.Root()
	if err != nil {
		return "", "", err
	}
	trashRoot, err = s.guard.Resolve(root, DirName)
	if err != nil {
		return "", "", err
	}
	return root, trashRoot, nil
}

// resolveEntry confines a caller-supplied trash path to the trash root.
// A trailing "/" as returned by List for directories is accepted.
func (s *Store) resolveEntry(trashRoot, trashPath string) (abs, rel string, err error) {
	normalized := strings.TrimRight(workspace.Normalize(trashPath), "/")
	if normalized == "" {
		return "", "", fmt.Errorf("%w: %s", ErrNotFound, trashPath)
	}

	abs, err = s.guard.Resolve(trashRoot, normalized)
	if err != nil {
		return "", "", err
	}
	if err := s.guard.ValidateNotRoot(trashRoot, abs); err != nil {
		return "", "", err
	}
	rel, err = s.guard.Rel(trashRoot, abs)
	if err != nil {
		return "", "", err
	}
	return abs, rel, nil
}

// removeBatchIfEmpty drops the batch directory once its last entry is gone.
// Other directories are entries in their own right and are left alone.
func removeBatchIfEmpty(batchDir, entry string) {
	if batchDir == entry {
		return
	}
	if err := fsutil.RemoveIfEmpty(batchDir); err != nil {
		log.Warn("Failed to remove empty trash batch %s: %v", batchDir, err)
	}
}

func moveError(err error, from, to string) error {
	switch {
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", ErrConflict, to)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	default:
		return fmt.Errorf("move %s to %s: %w", from, to, err)
	}
}
