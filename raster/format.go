package raster

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Format describes one variant of the binary layout: the variant id written in the header, the name used
// in cache file names, and the metadata block between header and cells.
type Format[T Cell] interface {
	VariantID() uint8
	VariantName() string
	ReadMetadata(r io.Reader, g *Grid[T]) error
	WriteMetadata(w io.Writer, g *Grid[T]) error
}

var (
	// Plain stores uint16 values without metadata.
	Plain Format[uint16] = plainFormat[uint16]{id: 0, name: "plain"}
	// Labelled stores uint16 label indexes followed by the label table.
	Labelled Format[uint16] = labelledFormat{}
	// Wide stores uint32 values without metadata.
	Wide Format[uint32] = plainFormat[uint32]{id: 2, name: "wide"}
)

// VariantNames lists the names of all formats, in variant id order.
var VariantNames = []string{Plain.VariantName(), Labelled.VariantName(), Wide.VariantName()}

type plainFormat[T Cell] struct {
	id   uint8
	name string
}

func (f plainFormat[T]) VariantID() uint8 {
	return f.id
}

func (f plainFormat[T]) VariantName() string {
	return f.name
}

func (f plainFormat[T]) ReadMetadata(io.Reader, *Grid[T]) error {
	return nil
}

func (f plainFormat[T]) WriteMetadata(_ io.Writer, g *Grid[T]) error {
	if len(g.labels) > 0 {
		return fmt.Errorf("%w: %s cannot store %d labels", ErrMetadataUnsupported, f.name, len(g.labels))
	}
	return nil
}

type labelledFormat struct{}

func (labelledFormat) VariantID() uint8 {
	return 1
}

func (labelledFormat) VariantName() string {
	return "labelled"
}

// ReadMetadata reads a u16 count and count u32 label ids.
func (labelledFormat) ReadMetadata(r io.Reader, g *Grid[uint16]) error {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("read label count: %w", unexpectedEOF(err))
	}
	labels := make([]uint32, count)
	if err := binary.Read(r, binary.LittleEndian, labels); err != nil {
		return fmt.Errorf("read %d labels: %w", count, unexpectedEOF(err))
	}
	g.labels = labels
	return nil
}

func (labelledFormat) WriteMetadata(w io.Writer, g *Grid[uint16]) error {
	if len(g.labels) > math.MaxUint16 {
		return fmt.Errorf("%w: %d", ErrLabelOverflow, len(g.labels))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(g.labels))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, g.labels)
}
