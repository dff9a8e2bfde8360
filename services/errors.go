package services

import "errors"

var (
	// ErrDecompression marks a corrupt, truncated or otherwise unreadable gzip stream.
	ErrDecompression = errors.New("decompression failed")
	// ErrSchemaMismatch marks a header that lacks one or more required columns.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
