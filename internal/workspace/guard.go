package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"markdesk-server/internal/logger"
)

var log = logger.WithComponent("WORKSPACE")

// Guard confines caller-supplied relative paths to a root directory.
// Every filesystem mutation goes through Resolve first.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

// Normalize converts a caller path to forward slashes and strips a leading "./".
func Normalize(userPath string) string {
	p := strings.ReplaceAll(userPath, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

// Resolve joins userPath onto root and returns the absolute result, or a
// *PathSecurityError when the result would not be root or nested under it.
// The deepest existing component of the result is also checked after symlink
// evaluation, so neither reads nor writes can pass through a link that leaves root.
func (g *Guard) Resolve(root, userPath string) (string, error) {
	normalized := Normalize(userPath)

	if path.IsAbs(normalized) || filepath.IsAbs(filepath.FromSlash(normalized)) || filepath.VolumeName(filepath.FromSlash(normalized)) != "" {
		return "", &PathSecurityError{Op: "check_absolute", Path: userPath, Wrapped: ErrPathTraversal}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &PathSecurityError{Op: "resolve_base", Path: root, Wrapped: ErrInvalidPath}
	}

	absPath := filepath.Join(absRoot, filepath.FromSlash(normalized))
	if !isWithinBase(absPath, absRoot) {
		return "", &PathSecurityError{Op: "check_traversal", Path: userPath, Wrapped: ErrPathTraversal}
	}

	realBase, err := resolveRealPathOrAbs(absRoot)
	if err != nil {
		return "", &PathSecurityError{Op: "resolve_base", Path: root, Wrapped: ErrInvalidPath}
	}

	// A component may vanish between Lstat and EvalSymlinks under concurrent moves,
	// or be a dangling link; either way fall back to its parent.
	for existing := nearestExisting(absPath, absRoot); existing != absRoot; {
		realPath, err := filepath.EvalSymlinks(existing)
		if errors.Is(err, fs.ErrNotExist) {
			existing = nearestExisting(filepath.Dir(existing), absRoot)
			continue
		}
		if err != nil {
			return "", &PathSecurityError{Op: "resolve_symlink", Path: existing, Wrapped: ErrInvalidPath}
		}
		if !isWithinBase(realPath, realBase) {
			log.Warn("Symlink escape attempt: %s -> %s (base: %s)", existing, realPath, realBase)
			return "", &PathSecurityError{Op: "check_symlink", Path: userPath, Wrapped: ErrSymlinkEscape}
		}
		break
	}

	return absPath, nil
}

// ValidateNotRoot ensures the path is not the root itself.
func (g *Guard) ValidateNotRoot(root, resolvedPath string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return &PathSecurityError{Op: "resolve_base", Path: root, Wrapped: ErrInvalidPath}
	}
	if resolvedPath == absRoot {
		return &PathSecurityError{Op: "validate_root", Path: resolvedPath, Wrapped: ErrRootDeletion}
	}
	return nil
}

// Rel returns absPath relative to root using forward slashes.
func (g *Guard) Rel(root, absPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &PathSecurityError{Op: "resolve_base", Path: root, Wrapped: ErrInvalidPath}
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", &PathSecurityError{Op: "relativize", Path: absPath, Wrapped: ErrPathTraversal}
	}
	return filepath.ToSlash(rel), nil
}

// IsValidFilename checks if a filename is safe (no path separators or traversal)
func IsValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

// nearestExisting returns the deepest existing path between absPath and absRoot.
func nearestExisting(absPath, absRoot string) string {
	for p := absPath; p != absRoot; p = filepath.Dir(p) {
		if _, err := os.Lstat(p); err == nil {
			return p
		}
		if filepath.Dir(p) == p {
			break
		}
	}
	return absRoot
}
