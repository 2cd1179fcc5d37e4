package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// header is the fixed part of every file, 10 bytes little-endian.
type header struct {
	VariantID  uint8
	Resolution uint8
	X          int16
	Y          int16
	Width      uint16
	Height     uint16
}

// maxPrealloc caps the bytes reserved for cells before any of them is read, a header alone cannot
// make Decode allocate more than this.
const maxPrealloc = 1 << 20

func cellSize[T Cell]() int {
	var zero T
	return binary.Size(zero)
}

// Encode writes header, format metadata and cells.
func Encode[T Cell](w io.Writer, f Format[T], g *Grid[T]) error {
	if err := checkRepresentable(g.Bounds()); err != nil {
		return err
	}
	h := header{
		VariantID:  f.VariantID(),
		Resolution: uint8(g.resolution),
		X:          int16(g.x),
		Y:          int16(g.y),
		Width:      uint16(g.width),
		Height:     uint16(g.height),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.WriteMetadata(w, g); err != nil {
		return fmt.Errorf("write %s metadata: %w", f.VariantName(), err)
	}
	if err := binary.Write(w, binary.LittleEndian, g.cells); err != nil {
		return fmt.Errorf("write cells: %w", err)
	}
	return nil
}

// Decode reads a grid written by Encode with the same format.
func Decode[T Cell](r io.Reader, f Format[T]) (*Grid[T], error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", unexpectedEOF(err))
	}
	if h.VariantID != f.VariantID() {
		return nil, fmt.Errorf("%w: got %d, expected %d (%s)", ErrFormatMismatch, h.VariantID, f.VariantID(), f.VariantName())
	}
	if h.Resolution == 0 {
		return nil, fmt.Errorf("%w: 0", ErrResolution)
	}
	g := &Grid[T]{
		resolution: int(h.Resolution),
		x:          int(h.X),
		y:          int(h.Y),
		width:      int(h.Width),
		height:     int(h.Height),
	}
	if err := f.ReadMetadata(r, g); err != nil {
		return nil, fmt.Errorf("read %s metadata: %w", f.VariantName(), err)
	}
	cells, err := readRows[T](r, g.width, g.height)
	if err != nil {
		return nil, fmt.Errorf("read %dx%d cells: %w", g.width, g.height, err)
	}
	g.cells = cells
	return g, nil
}

// readRows reads height rows of width cells. The buffer grows as rows arrive, so a short
// payload fails after reading what is there instead of after allocating what the header claims.
func readRows[T Cell](r io.Reader, width, height int) ([]T, error) {
	cells := make([]T, 0, min(width*height, maxPrealloc/cellSize[T]()))
	if width == 0 {
		return cells, nil
	}
	row := make([]T, width)
	for i := 0; i < height; i++ {
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, unexpectedEOF(err))
		}
		cells = append(cells, row...)
	}
	return cells, nil
}

// unexpectedEOF turns a clean EOF into io.ErrUnexpectedEOF: every part of a file is mandatory.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
