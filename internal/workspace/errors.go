package workspace

import (
	"errors"
	"fmt"
)

// Path security errors.
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrSymlinkEscape = errors.New("symlink escape detected")
	ErrInvalidPath   = errors.New("invalid path")
	ErrRootDeletion  = errors.New("cannot operate on workspace root")
)

// ErrInvalidInput marks malformed caller values such as an empty name.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotConfigured is returned by every operation that needs a workspace root when none is set.
var ErrNotConfigured = errors.New("workspace path not configured")

// PathSecurityError wraps path security errors with context.
type PathSecurityError struct {
	Op      string
	Path    string
	Wrapped error
}

func (e *PathSecurityError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Wrapped)
}

func (e *PathSecurityError) Unwrap() error {
	return e.Wrapped
}

func IsPathTraversal(err error) bool {
	return errors.Is(err, ErrPathTraversal)
}

func IsSymlinkEscape(err error) bool {
	return errors.Is(err, ErrSymlinkEscape)
}

// IsConfinement reports whether err was raised because a path would leave its root.
func IsConfinement(err error) bool {
	var pathErr *PathSecurityError
	return errors.As(err, &pathErr)
}
