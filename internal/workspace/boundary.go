package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

func resolveRealPathOrAbs(path string) (string, error) {
	realPath, err := filepath.EvalSymlinks(path)
	if err == nil {
		return realPath, nil
	}
	return filepath.Abs(path)
}

func isWithinBase(path, base string) bool {
	return strings.HasPrefix(path, base+string(os.PathSeparator)) || path == base
}

// IsWithin reports whether child equals parent or lies beneath it. Both must be absolute and clean.
func IsWithin(child, parent string) bool {
	return isWithinBase(child, parent)
}
