// Package storage provides keyed file storage for staged uploads and
// rendered artifacts. Keys are slash-separated relative paths resolved
// under a single base directory; path traversal is rejected.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/JaimeStill/trmnl-bot/pkg/lifecycle"
)

// Storage errors returned by System implementations.
var (
	// ErrNotFound indicates the requested key does not exist in storage.
	ErrNotFound = errors.New("storage: key not found")

	// ErrPermissionDenied indicates insufficient permissions to access the key.
	ErrPermissionDenied = errors.New("storage: permission denied")

	// ErrInvalidKey indicates the key is empty, absolute, or escapes the base path.
	ErrInvalidKey = errors.New("storage: invalid key")

	// ErrTooLarge indicates a stream exceeded the write limit.
	ErrTooLarge = errors.New("storage: content exceeds size limit")
)

// System defines keyed file operations.
type System interface {
	// Store saves data at key, replacing existing content atomically.
	Store(ctx context.Context, key string, data []byte) error

	// Write streams r to key, replacing existing content atomically.
	// A positive limit caps the number of bytes accepted; exceeding it
	// returns ErrTooLarge and leaves no file behind.
	Write(ctx context.Context, key string, r io.Reader, limit int64) (int64, error)

	// Move renames src to dst within storage, replacing dst atomically.
	// Returns ErrNotFound if src does not exist.
	Move(ctx context.Context, src, dst string) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Validate reports whether key exists and is accessible.
	Validate(ctx context.Context, key string) (bool, error)

	// Path resolves key to an absolute filesystem path without touching the file.
	Path(ctx context.Context, key string) (string, error)

	// Start registers lifecycle hooks with the coordinator.
	// For filesystem storage, this creates the base directory.
	Start(lc *lifecycle.Coordinator) error
}
