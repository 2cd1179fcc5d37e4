// Package levelstore maps a (level, mode) pair to a grid file in the cache directory.
package levelstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdok/rastercache/raster"
)

var ErrInvalidMode = errors.New("mode must be a non-empty name without path separators")

// Store reads and writes one grid file per (level, mode) under a root directory, all in one format.
type Store[T raster.Cell] struct {
	root   string
	format raster.Format[T]
}

func New[T raster.Cell](root string, format raster.Format[T]) *Store[T] {
	return &Store[T]{root: root, format: format}
}

func (s *Store[T]) Root() string {
	return s.root
}

func (s *Store[T]) Format() raster.Format[T] {
	return s.format
}

// PathFor returns <root>/<variant>_<mode>_level_<level>.
func (s *Store[T]) PathFor(level int, mode string) (string, error) {
	if mode == "" || mode == "." || mode == ".." || strings.ContainsAny(mode, `/\`) || strings.ContainsRune(mode, os.PathSeparator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return filepath.Join(s.root, fmt.Sprintf("%s_%s_level_%d", s.format.VariantName(), mode, level)), nil
}

// Load opens the grid for a level and mode. A missing file surfaces as fs.ErrNotExist.
func (s *Store[T]) Load(level int, mode string) (*raster.Grid[T], error) {
	path, err := s.PathFor(level, mode)
	if err != nil {
		return nil, err
	}
	g, err := raster.Open(path, s.format)
	if err != nil {
		return nil, fmt.Errorf("load level %d mode %s: %w", level, mode, err)
	}
	return g, nil
}

// Save writes the grid for a level and mode, creating the root directory when needed.
func (s *Store[T]) Save(g *raster.Grid[T], level int, mode string) error {
	path, err := s.PathFor(level, mode)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}
	if err = raster.Save(g, s.format, path); err != nil {
		return fmt.Errorf("save level %d mode %s: %w", level, mode, err)
	}
	return nil
}
