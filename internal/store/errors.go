package store

import "errors"

// ErrNotFound is returned when an artifact, version, or policy row does
// not exist. Callers translate it into their own validation errors.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the current-version pointer no longer
// matches the expected previous version id during AppendVersion. The
// operation left the store untouched and is safe to retry.
var ErrConflict = errors.New("current-version pointer moved")
