package fsutil

import (
	"io/fs"
	"os"
)

// checkThenRename is the portable fallback. Callers hold a Locker key for dst,
// which closes the window between the check and the rename in-process.
func checkThenRename(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrNotExist}
	}
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return os.Rename(src, dst)
}
