package trash

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"markdesk-server/internal/fsutil"
)

func bothDirs(a, b string) bool {
	return isDir(a) && isDir(b)
}

func isDir(p string) bool {
	info, err := os.Lstat(p)
	return err == nil && info.IsDir()
}

// merge moves the contents of directory src into the existing directory dst,
// descending into directories present on both sides, then removes src.
// Nothing moves if any non-directory would collide; the first collision is
// reported as ErrConflict with its trash path (rel names dst).
func merge(src, dst, rel string) error {
	collision, err := findCollision(src, dst, rel)
	if err != nil {
		return err
	}
	if collision != "" {
		return fmt.Errorf("%w: %s", ErrConflict, collision)
	}
	if err := mergeDir(src, dst); err != nil {
		return moveError(err, rel, rel)
	}
	return nil
}

func findCollision(src, dst, rel string) (string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		ok, err := fsutil.Exists(to)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		childRel := path.Join(rel, e.Name())
		if !bothDirs(from, to) {
			return childRel, nil
		}
		if c, err := findCollision(from, to, childRel); err != nil || c != "" {
			return c, err
		}
	}
	return "", nil
}

func mergeDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		err := fsutil.Move(from, to)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrExist) || !bothDirs(from, to) {
			return err
		}
		if err := mergeDir(from, to); err != nil {
			return err
		}
	}
	return os.Remove(src)
}
