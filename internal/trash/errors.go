package trash

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("destination already exists")
	ErrInvalidOperation = errors.New("invalid operation")
)
