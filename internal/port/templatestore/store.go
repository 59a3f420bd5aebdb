// Package templatestore defines the port interface for read-only template storage.
package templatestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no template exists for a key.
// It is a normal outcome: callers skip the file and continue.
var ErrNotFound = errors.New("template not found")

// Store loads raw template text by key. Keys follow
// <category>/<technology-combination>/<filename>.
type Store interface {
	Load(ctx context.Context, key string) (string, error)
}
