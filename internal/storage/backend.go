package storage

import (
	"context"
	"io"
)

// Backend is where the generator materializes its datasets.
// Paths are relative to the backend root.
type Backend interface {
	// WriteReader atomically replaces the file at path with the reader's contents
	WriteReader(ctx context.Context, path string, reader io.Reader) error

	// Delete removes the file at path; a missing file is not an error
	Delete(ctx context.Context, path string) error

	// Exists checks if a file exists at path
	Exists(ctx context.Context, path string) (bool, error)

	// FullPath resolves path to the location engines should open
	FullPath(path string) (string, error)

	// Close releases any resources held by the backend
	Close() error

	// Type returns the storage type identifier ("local")
	Type() string
}
