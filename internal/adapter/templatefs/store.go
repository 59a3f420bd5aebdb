// Package templatefs implements the template store port on top of io/fs.
// Built-in templates are embedded in the binary; an optional directory on
// disk overrides them key by key.
package templatefs

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/Strob0t/StackForge/internal/port/templatestore"
)

//go:embed all:templates
var builtin embed.FS

// Store reads templates from an ordered list of filesystems. The first
// filesystem that contains a key wins.
type Store struct {
	layers []fs.FS
}

// New creates a Store over the given layers, highest priority first.
func New(layers ...fs.FS) *Store {
	return &Store{layers: layers}
}

// Builtin returns the embedded template tree.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		panic(fmt.Sprintf("templatefs: embedded templates: %v", err))
	}
	return sub
}

// NewWithOverlay creates a Store that consults dir before the embedded
// templates. An empty dir disables the overlay.
func NewWithOverlay(dir string) (*Store, error) {
	if dir == "" {
		return New(Builtin()), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template dir %s is not a directory", dir)
	}
	slog.Info("template overlay enabled", "dir", dir)
	return New(os.DirFS(dir), Builtin()), nil
}

// Load returns the template text for key, or templatestore.ErrNotFound.
func (s *Store) Load(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := path.Clean(strings.TrimPrefix(key, "/"))
	if !fs.ValidPath(name) || name == "." {
		return "", fmt.Errorf("template %q: %w", key, templatestore.ErrNotFound)
	}
	for _, layer := range s.layers {
		data, err := fs.ReadFile(layer, name)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read template %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("template %q: %w", key, templatestore.ErrNotFound)
}

// Keys lists every template key visible through the store, sorted.
func (s *Store) Keys() ([]string, error) {
	seen := make(map[string]bool)
	var keys []string
	for _, layer := range s.layers {
		err := fs.WalkDir(layer, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || seen[p] {
				return nil
			}
			seen[p] = true
			keys = append(keys, p)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(keys)
	return keys, nil
}
