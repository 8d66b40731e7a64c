package store

import "errors"

var (
	// ErrUnavailable is returned when the backing medium cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
	// ErrCorrupt is returned when persisted data cannot be decoded.
	ErrCorrupt = errors.New("store data corrupt")
	// ErrEmptyKey is returned for operations on an empty key.
	ErrEmptyKey = errors.New("store key must not be empty")
)
