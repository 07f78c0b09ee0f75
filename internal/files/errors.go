package files

import "markdesk-server/internal/workspace"

// ErrInvalidInput is returned for malformed request values such as an empty
// filename or a new name containing a separator.
var ErrInvalidInput = workspace.ErrInvalidInput
