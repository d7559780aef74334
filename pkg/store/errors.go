package store

import "errors"

var (
	// ErrNameRequired is returned when saving a chat that has no name.
	ErrNameRequired = errors.New("chat has no name")
	// ErrNotFound is returned when no chat file exists for a name.
	ErrNotFound = errors.New("chat not found")
	// ErrCorruptFormat is returned when the metadata markers are missing.
	ErrCorruptFormat = errors.New("invalid file format: missing metadata")
	// ErrCorruptMetadata is returned when the metadata block is not valid JSON.
	ErrCorruptMetadata = errors.New("invalid metadata")
)
