package core

import "errors"

var (
	// ErrNotConnected is returned by store operations attempted before Open.
	ErrNotConnected = errors.New("store not connected")

	// ErrNotFound is returned when a document, session or file is absent.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input that has no safe default.
	ErrValidation = errors.New("validation failed")
)
