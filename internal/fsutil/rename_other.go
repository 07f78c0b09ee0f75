//go:build !linux

package fsutil

import (
	"errors"
	"syscall"
)

func renameNoReplace(src, dst string) error {
	return checkThenRename(src, dst)
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
