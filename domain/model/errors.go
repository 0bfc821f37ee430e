package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("all fields are required")
	ErrDuplicateUser    = errors.New("username already exists")
	ErrNotFound         = errors.New("user not found")
	ErrProtectedAccount = errors.New("the seeded admin account cannot be deleted")

	ErrUserStoreNotFound  = errors.New("user store file not found")
	ErrUserStoreCorrupted = errors.New("user store file corrupted")
	ErrInvalidChecksum    = errors.New("invalid file checksum")
)

// StorageError wraps a persistence read/write failure with the operation
// and path it happened on. The previous store content is always preserved
// when a write fails.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op, path string, err error) *StorageError {
	return &StorageError{Op: op, Path: path, Err: err}
}
