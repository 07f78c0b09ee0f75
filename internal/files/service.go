package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"markdesk-server/internal/fsutil"
	"markdesk-server/internal/logger"
	"markdesk-server/internal/observability"
	"markdesk-server/internal/trash"
	"markdesk-server/internal/workspace"
)

// HexoPostsDir is where a Hexo site keeps its posts, relative to the site root.
const HexoPostsDir = "source/_posts"

var filesLog = logger.WithComponent("FILES")

// Service implements post and folder operations against the current workspace root.
// Every caller-supplied path is confined with the Guard before the filesystem is touched.
type Service struct {
	registry *workspace.Registry
	guard    *workspace.Guard
	trash    *trash.Store
	locks    *fsutil.Locker
	metrics  *observability.Metrics
	now      func() time.Time
}

type Option func(*Service)

// WithLocker shares the path lock table used by the trash store.
func WithLocker(l *fsutil.Locker) Option {
	return func(s *Service) { s.locks = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time written into new post front matter.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a file service.
func NewService(registry *workspace.Registry, guard *workspace.Guard, trashStore *trash.Store, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		guard:    guard,
		trash:    trashStore,
		locks:    fsutil.NewLocker(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsHexoSite reports whether root looks like a Hexo site.
func IsHexoSite(root string) bool {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(HexoPostsDir)))
	return err == nil && info.IsDir()
}

// ListPosts returns every Markdown file below the root, excluding the trash.
func (s *Service) ListPosts(ctx context.Context) (posts []string, err error) {
	_, span := s.metrics.StartSpan(ctx, "files_list_posts")
	defer func() { span.End(err) }()

	posts = []string{}
	root, ok := s.registry.Get()
	if !ok || !isDir(root) {
		return posts, nil
	}

	matches, err := doublestar.Glob(os.DirFS(root), PostPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	for _, m := range matches {
		if !trash.InTrash(m) {
			posts = append(posts, m)
		}
	}
	sort.Strings(posts)
	return posts, ctx.Err()
}

// ListFolders returns every directory below the root, excluding the root and the trash.
func (s *Service) ListFolders(ctx context.Context) (folders []string, err error) {
	_, span := s.metrics.StartSpan(ctx, "files_list_folders")
	defer func() { span.End(err) }()

	folders = []string{}
	root, ok := s.registry.Get()
	if !ok || !isDir(root) {
		return folders, nil
	}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || p == root || !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if trash.InTrash(rel) {
			return filepath.SkipDir
		}

		mu.Lock()
		folders = append(folders, rel)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	sort.Strings(folders)
	return folders, nil
}

// CreatePost creates a new post with default front matter and returns its relative path.
func (s *Service) CreatePost(ctx context.Context, filename string) (rel string, err error) {
	_, span := s.metrics.StartSpan(ctx, "files_create_post")
	defer func() { span.End(err) }()

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", fmt.Errorf("%w: filename must not be empty", ErrInvalidInput)
	}

	root, abs, rel, err := s.resolveItem(ctx, filename)
	if err != nil {
		return "", err
	}

	unlock := s.locks.Lock(abs)
	defer unlock()

	if parent := filepath.Dir(abs); parent != root {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return "", fmt.Errorf("create parent directory: %w", err)
		}
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%w: %s", trash.ErrConflict, rel)
	}
	if err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	if _, err := f.WriteString(frontMatter(s.now().UTC().Format("2006-01-02 15:04:05"))); err != nil {
		f.Close()
		return "", fmt.Errorf("write post: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write post: %w", err)
	}

	filesLog.Info("Created post: %s", rel)
	return rel, nil
}

// CreateFolder creates a directory (and missing parents).
func (s *Service) CreateFolder(ctx context.Context, folder string) (err error) {
	_, span := s.metrics.StartSpan(ctx, "files_create_folder")
	defer func() { span.End(err) }()

	if strings.TrimSpace(folder) == "" {
		return fmt.Errorf("%w: folder path must not be empty", ErrInvalidInput)
	}

	_, abs, rel, err := s.resolveItem(ctx, folder)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(abs)
	defer unlock()

	if ok, err := fsutil.Exists(abs); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", trash.ErrConflict, rel)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}

	filesLog.Info("Created folder: %s", rel)
	return nil
}

// ReadPost returns the text of a post.
func (s *Service) ReadPost(ctx context.Context, name string) (content string, err error) {
	_, span := s.metrics.StartSpan(ctx, "files_read_post")
	defer func() { span.End(err) }()

	_, abs, rel, err := s.resolveItem(ctx, name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", trash.ErrNotFound, rel)
	}
	if err != nil {
		return "", fmt.Errorf("stat post: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", trash.ErrInvalidOperation, rel)
	}
	if IsBinaryFile(rel) {
		return "", fmt.Errorf("%w: %s is not a text file", trash.ErrInvalidOperation, rel)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read post: %w", err)
	}
	return string(data), nil
}

// SavePost writes content to a post, creating it and its parents when needed.
// The file is replaced atomically so readers never see a partial write.
func (s *Service) SavePost(ctx context.Context, name, content string) (err error) {
	_, span := s.metrics.StartSpan(ctx, "files_save_post")
	defer func() { span.End(err) }()

	_, abs, rel, err := s.resolveItem(ctx, name)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(abs)
	defer unlock()

	perm := fs.FileMode(0644)
	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", trash.ErrInvalidOperation, rel)
		}
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".markdesk-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write post: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod post: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write post: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace post: %w", err)
	}

	filesLog.Debug("Saved post: %s (%d bytes)", rel, len(content))
	return nil
}

// DeletePost moves a post to the trash and returns its trash path.
func (s *Service) DeletePost(ctx context.Context, name string) (string, error) {
	return s.trash.SoftDelete(ctx, name)
}

// DeleteFolder moves a folder to the trash and returns its trash path.
// Like DeletePost it only requires the target to exist.
func (s *Service) DeleteFolder(ctx context.Context, folder string) (string, error) {
	return s.trash.SoftDelete(ctx, folder)
}

// Move relocates source to destination without overwriting and returns the new relative path.
func (s *Service) Move(ctx context.Context, source, destination string) (moved string, err error) {
	_, span := s.metrics.StartSpan(ctx, "files_move")
	defer func() { span.End(err) }()

	if strings.TrimSpace(source) == "" || strings.TrimSpace(destination) == "" {
		return "", fmt.Errorf("%w: source and destination are required", ErrInvalidInput)
	}

	_, srcAbs, srcRel, err := s.resolveItem(ctx, source)
	if err != nil {
		return "", err
	}
	_, dstAbs, dstRel, err := s.resolveItem(ctx, destination)
	if err != nil {
		return "", err
	}

	if workspace.IsWithin(dstAbs, srcAbs) {
		return "", fmt.Errorf("%w: cannot move %s into itself", trash.ErrInvalidOperation, srcRel)
	}

	unlock := s.locks.Lock(srcAbs, dstAbs)
	defer unlock()

	if ok, err := fsutil.Exists(srcAbs); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("%w: %s", trash.ErrNotFound, srcRel)
	}
	if ok, err := fsutil.Exists(dstAbs); err != nil {
		return "", err
	} else if ok {
		return "", fmt.Errorf("%w: %s", trash.ErrConflict, dstRel)
	}

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}
	if err := fsutil.Move(srcAbs, dstAbs); err != nil {
		switch {
		case errors.Is(err, fs.ErrExist):
			return "", fmt.Errorf("%w: %s", trash.ErrConflict, dstRel)
		case errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("%w: %s", trash.ErrNotFound, srcRel)
		default:
			return "", fmt.Errorf("move %s to %s: %w", srcRel, dstRel, err)
		}
	}

	filesLog.Info("Moved: %s -> %s", srcRel, dstRel)
	return dstRel, nil
}

// Rename gives an item a new name within its current folder.
func (s *Service) Rename(ctx context.Context, name, newName string) (string, error) {
	newName = strings.TrimSpace(newName)
	if !workspace.IsValidFilename(newName) {
		return "", fmt.Errorf("%w: %q is not a valid name", ErrInvalidInput, newName)
	}

	rel := strings.TrimRight(workspace.Normalize(name), "/")
	return s.Move(ctx, rel, path.Join(path.Dir(rel), newName))
}

// InitPostsFolder creates the Hexo posts folder under the root and returns its absolute path.
func (s *Service) InitPostsFolder(ctx context.Context) (postsPath string, err error) {
	_, span := s.metrics.StartSpan(ctx, "files_init_posts")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	root, err := s.registry.Root()
	if err != nil {
		return "", err
	}

	postsPath, err = s.guard.Resolve(root, HexoPostsDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(postsPath, 0755); err != nil {
		return "", fmt.Errorf("create posts folder: %w", err)
	}

	filesLog.Info("Initialized posts folder: %s", postsPath)
	return postsPath, nil
}

// resolveItem confines name to the root and rejects the root itself and anything in the trash.
func (s *Service) resolveItem(ctx context.Context, name string) (root, abs, rel string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", "", err
	}

	root, err = s.registry.Root()
	if err != nil {
		return "", "", "", err
	}
	abs, err = s.guard.Resolve(root, name)
	if err != nil {
		return "", "", "", err
	}
	if err := s.guard.ValidateNotRoot(root, abs); err != nil {
		return "", "", "", err
	}
	rel, err = s.guard.Rel(root, abs)
	if err != nil {
		return "", "", "", err
	}
	if trash.InTrash(rel) {
		return "", "", "", fmt.Errorf("%w: %s is managed through the trash API", trash.ErrInvalidOperation, rel)
	}
	return root, abs, rel, nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
