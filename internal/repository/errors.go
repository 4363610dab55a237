package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrUnavailable is returned when the record store could not be
	// reached. Callers may retry with backoff.
	ErrUnavailable = errors.New("record store unavailable")
)
