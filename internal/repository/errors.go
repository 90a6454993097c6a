package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or was soft-deleted.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a save races with another writer.
	ErrVersionConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("record already exists")
)
