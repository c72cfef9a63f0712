package storage

import (
	"errors"
)

// ErrDuplicate is returned when a row with the same unique key already
// exists (event ID, access-list IP address).
var ErrDuplicate = errors.New("row already exists")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("row not found")
