package storage

import "errors"

// Common storage errors
var (
	// ErrNotFound indicates that key was not found in storage
	ErrNotFound = errors.New("key not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
