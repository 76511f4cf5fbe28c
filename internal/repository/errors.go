package repository

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the
// source-of-truth database.
var ErrNotFound = errors.New("repository: not found")

// ErrInvalidRecord is returned when a source row is missing required fields
// (blank name, absent owner). Indexing catches it per record and skips.
var ErrInvalidRecord = errors.New("repository: invalid record")
