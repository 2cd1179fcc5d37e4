package raster

import (
	"bufio"
	"fmt"
	"os"
)

// Open decodes the file at path and remembers path as the grid's filename.
func Open[T Cell](path string, f Format[T]) (*Grid[T], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	g, err := Decode(bufio.NewReader(file), f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	g.filename = path
	return g, nil
}

// Save writes the grid to path, or to its remembered filename when path is empty.
// The file is overwritten in place, there is no locking and no atomic replace: one writer at a time.
func Save[T Cell](g *Grid[T], f Format[T], path string) error {
	if path == "" {
		path = g.filename
	}
	if path == "" {
		return ErrMissingDestination
	}
	if err := checkRepresentable(g.Bounds()); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if err = Encode(w, f, g); err != nil {
		_ = file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err = w.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
