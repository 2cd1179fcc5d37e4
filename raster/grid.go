// Package raster implements a geometry indexed grid: a dense 2D array of small unsigned values at a fixed
// resolution, written by rasterizing geometries and read back per extent, geometry or point.
//
// Cell coordinates: world ordinate w lies in cell floor(w / resolution). The array's lower left cell is
// (x, y), its row 0 is the row at y and rows grow towards +y. Cells are stored row-major in one flat slice.
package raster

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"

	"github.com/pdok/rastercache/intgeom"
	"github.com/pdok/rastercache/mathhelp"
	"github.com/pdok/rastercache/prepared"
)

// Cell is the element type of a grid. Its size is fixed per format.
type Cell interface {
	~uint8 | ~uint16 | ~uint32
}

// Index addresses a cell relative to the array: Row 0 / Col 0 is the cell at the grid's origin.
type Index struct {
	Row, Col int
}

// Grid is a geometry indexed raster. The bounds only ever grow.
// A Grid is not safe for concurrent writes; once handed out by a cache it must be treated as read-only.
type Grid[T Cell] struct {
	resolution    int
	x, y          int
	width, height int
	cells         []T
	labels        []uint32
	filename      string
}

// New returns an empty (0x0) grid with its origin at 0,0.
func New[T Cell](resolution int) (*Grid[T], error) {
	if resolution < 1 || resolution > math.MaxUint8 {
		return nil, fmt.Errorf("%w: %d", ErrResolution, resolution)
	}
	return &Grid[T]{resolution: resolution, cells: []T{}}, nil
}

// FromCells builds a grid around existing row-major cells.
func FromCells[T Cell](resolution, x, y, width, height int, cells []T) (*Grid[T], error) {
	g, err := New[T](resolution)
	if err != nil {
		return nil, err
	}
	if width < 0 || height < 0 || len(cells) != width*height {
		return nil, fmt.Errorf("%w: %d cells for %dx%d", ErrCellCount, len(cells), width, height)
	}
	if err = checkRepresentable(intgeom.Extent{x, y, x + width, y + height}); err != nil {
		return nil, err
	}
	g.x, g.y, g.width, g.height, g.cells = x, y, width, height, cells
	return g, nil
}

/* ========================= ATTRIBUTES ========================= */

func (g *Grid[T]) Resolution() int {
	return g.resolution
}

// Origin returns the cell coordinates of the lower left cell.
func (g *Grid[T]) Origin() (x, y int) {
	return g.x, g.y
}

func (g *Grid[T]) Width() int {
	return g.width
}

func (g *Grid[T]) Height() int {
	return g.height
}

// Bounds returns (x, y, x+width, y+height) in cell coordinates.
func (g *Grid[T]) Bounds() intgeom.Extent {
	return intgeom.Extent{g.x, g.y, g.x + g.width, g.y + g.height}
}

// Cells returns the row-major cell values. The slice is the grid's own storage, do not modify it.
func (g *Grid[T]) Cells() []T {
	return g.cells
}

// Filename is the file the grid was opened from, if any.
func (g *Grid[T]) Filename() string {
	return g.filename
}

// CellAt returns the value of the cell at cell coordinates (x, y).
// ok is false when the cell is outside the array.
func (g *Grid[T]) CellAt(x, y int) (v T, ok bool) {
	col, row := x-g.x, y-g.y
	if col < 0 || row < 0 || col >= g.width || row >= g.height {
		return v, false
	}
	return g.cells[row*g.width+col], true
}

// Value returns the value of the cell containing the world point (wx, wy).
func (g *Grid[T]) Value(wx, wy float64) (T, bool) {
	return g.CellAt(mathhelp.FloorDiv(wx, g.resolution), mathhelp.FloorDiv(wy, g.resolution))
}

/* ========================= GROWTH ========================= */

// FitBounds grows the array so that it covers the given cell extent as well as its current one.
// Existing values keep their world position, new cells are zero.
func (g *Grid[T]) FitBounds(e intgeom.Extent) error {
	if e.IsEmpty() {
		return nil
	}
	current := g.Bounds()
	if current.Contains(e) && !current.IsEmpty() {
		return nil
	}
	union := current.Union(e)
	if err := checkRepresentable(union); err != nil {
		return err
	}

	width := union.XSpan()
	cells := make([]T, width*union.YSpan())
	if !current.IsEmpty() {
		dx := current.MinX() - union.MinX()
		dy := current.MinY() - union.MinY()
		for row := 0; row < g.height; row++ {
			copy(cells[(row+dy)*width+dx:], g.cells[row*g.width:(row+1)*g.width])
		}
	}

	g.x, g.y = union.MinX(), union.MinY()
	g.width, g.height = width, union.YSpan()
	g.cells = cells
	return nil
}

// checkRepresentable guards the header fields: origin as int16, width and height as uint16.
func checkRepresentable(e intgeom.Extent) error {
	if e.MinX() < math.MinInt16 || e.MinX() > math.MaxInt16 ||
		e.MinY() < math.MinInt16 || e.MinY() > math.MaxInt16 ||
		e.XSpan() > math.MaxUint16 || e.YSpan() > math.MaxUint16 {
		return fmt.Errorf("%w: %v", ErrBoundsOverflow, e)
	}
	return nil
}

/* ========================= RASTERIZATION ========================= */

// GeometryCells returns the array cells whose (closed) square intersects the geometry, in row-major order.
// Only cells within the current array are considered.
func (g *Grid[T]) GeometryCells(geometry geom.Geometry) ([]Index, error) {
	p, bounds, err := g.prepare(geometry)
	if err != nil || p.IsEmpty() {
		return nil, err
	}
	return g.geometryCells(p, bounds), nil
}

func (g *Grid[T]) prepare(geometry geom.Geometry) (*prepared.Geometry, intgeom.Extent, error) {
	p, err := prepared.Prepare(geometry)
	if err != nil {
		return nil, intgeom.Extent{}, fmt.Errorf("%w: %w", ErrInvalidKeyType, err)
	}
	worldExtent, ok := p.Extent()
	if !ok {
		return p, intgeom.Extent{}, nil
	}
	return p, intgeom.FromWorld(worldExtent, g.resolution), nil
}

func (g *Grid[T]) geometryCells(p *prepared.Geometry, bounds intgeom.Extent) []Index {
	candidates := bounds.Intersect(g.Bounds())
	if candidates.IsEmpty() {
		return nil
	}
	var cells []Index
	for cy := candidates.MinY(); cy < candidates.MaxY(); cy++ {
		for cx := candidates.MinX(); cx < candidates.MaxX(); cx++ {
			box := intgeom.Extent{cx, cy, cx + 1, cy + 1}.ToWorld(g.resolution)
			if p.IntersectsExtent(box) {
				cells = append(cells, Index{Row: cy - g.y, Col: cx - g.x})
			}
		}
	}
	return cells
}

/* ========================= READ / WRITE ========================= */

// Read returns cell values for a key: a geom.Extent (a world rectangle) or any supported geometry.
func (g *Grid[T]) Read(key any) ([]T, error) {
	switch k := key.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil key", ErrInvalidKeyType)
	case geom.Extent:
		return g.ReadExtent(k), nil
	case *geom.Extent:
		if k == nil {
			return nil, fmt.Errorf("%w: nil extent", ErrInvalidKeyType)
		}
		return g.ReadExtent(*k), nil
	}
	return g.ReadGeometry(key)
}

// ReadExtent returns the values of the cells covered by a world rectangle, row-major.
// The result is empty when the rectangle does not overlap the array.
func (g *Grid[T]) ReadExtent(e geom.Extent) []T {
	requested := intgeom.Extent{
		mathhelp.FloorDiv(e[0], g.resolution),
		mathhelp.FloorDiv(e[1], g.resolution),
		mathhelp.CeilDiv(e[2], g.resolution),
		mathhelp.CeilDiv(e[3], g.resolution),
	}
	c := requested.Intersect(g.Bounds())
	if c.IsEmpty() {
		return []T{}
	}
	values := make([]T, 0, c.XSpan()*c.YSpan())
	for cy := c.MinY(); cy < c.MaxY(); cy++ {
		start := (cy-g.y)*g.width + c.MinX() - g.x
		values = append(values, g.cells[start:start+c.XSpan()]...)
	}
	return values
}

// ReadGeometry returns the values of the cells selected by GeometryCells, row-major.
func (g *Grid[T]) ReadGeometry(geometry geom.Geometry) ([]T, error) {
	cells, err := g.GeometryCells(geometry)
	if err != nil {
		return nil, err
	}
	values := make([]T, len(cells))
	for i, c := range cells {
		values[i] = g.cells[c.Row*g.width+c.Col]
	}
	return values, nil
}

// Write sets value on every cell of a geometry key. Extents are rejected, rectangle writes are not supported.
func (g *Grid[T]) Write(key any, value T) error {
	switch key.(type) {
	case nil:
		return fmt.Errorf("%w: nil key", ErrInvalidKeyType)
	case geom.Extent, *geom.Extent:
		return fmt.Errorf("%w: rectangle writes are not supported, use a polygon", ErrInvalidKeyType)
	}
	return g.WriteGeometry(key, value)
}

// WriteGeometry grows the array to the geometry's cell envelope and sets value on every intersecting cell.
func (g *Grid[T]) WriteGeometry(geometry geom.Geometry, value T) error {
	p, bounds, err := g.prepare(geometry)
	if err != nil || p.IsEmpty() {
		return err
	}
	if err = g.FitBounds(bounds); err != nil {
		return err
	}
	for _, c := range g.geometryCells(p, bounds) {
		g.cells[c.Row*g.width+c.Col] = value
	}
	return nil
}

/* ========================= LABELS ========================= */

// Labels returns a copy of the label table, format metadata used by the labelled variant.
func (g *Grid[T]) Labels() []uint32 {
	return append([]uint32(nil), g.labels...)
}

// Label returns the cell value for an id: its 1-based position in the label table, appended when new.
// Zero stays free for "no label".
func (g *Grid[T]) Label(id uint32) (T, error) {
	for i, l := range g.labels {
		if l == id {
			return T(i + 1), nil
		}
	}
	n := len(g.labels) + 1
	if n > math.MaxUint16 || uint64(T(n)) != uint64(n) {
		return 0, fmt.Errorf("%w: cannot add label %d", ErrLabelOverflow, id)
	}
	g.labels = append(g.labels, id)
	return T(n), nil
}

// LabelID returns the id a cell value refers to.
func (g *Grid[T]) LabelID(v T) (uint32, bool) {
	if v == 0 || int(v) > len(g.labels) {
		return 0, false
	}
	return g.labels[v-1], true
}
