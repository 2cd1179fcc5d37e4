// Package intgeom holds integer geometry in cell space.
//
// Ordinates are grid cell indexes, not world units: world ordinate w maps to cell floor(w / resolution).
// An Extent is half-open, the max ordinates are exclusive, so its spans equal the number of cells covered.
package intgeom

import (
	"github.com/go-spatial/geom"

	"github.com/pdok/rastercache/mathhelp"
)

// Extent represents the minx, miny, maxx and maxy of a block of cells.
// maxX and maxY are exclusive.
type Extent [4]int

// FromWorld returns the cells touched by a world extent: floor for the minimum, ceil for the maximum.
// An axis with a zero span (a point or an axis-parallel line) still covers the one cell containing it.
func FromWorld(e geom.Extent, resolution int) Extent {
	c := Extent{
		mathhelp.FloorDiv(e[0], resolution),
		mathhelp.FloorDiv(e[1], resolution),
		mathhelp.CeilDiv(e[2], resolution),
		mathhelp.CeilDiv(e[3], resolution),
	}
	if c[2] <= c[0] {
		c[2] = c[0] + 1
	}
	if c[3] <= c[1] {
		c[3] = c[1] + 1
	}
	return c
}

// ToWorld returns the world extent of the cells.
func (e Extent) ToWorld(resolution int) geom.Extent {
	r := float64(resolution)
	return geom.Extent{
		float64(e[0]) * r,
		float64(e[1]) * r,
		float64(e[2]) * r,
		float64(e[3]) * r,
	}
}

/* ========================= ATTRIBUTES ========================= */

// MaxX is the larger (exclusive) of the x values.
func (e Extent) MaxX() int {
	return e[2]
}

// MinX  is the smaller of the x values.
func (e Extent) MinX() int {
	return e[0]
}

// MaxY is the larger (exclusive) of the y values.
func (e Extent) MaxY() int {
	return e[3]
}

// MinY is the smaller of the y values.
func (e Extent) MinY() int {
	return e[1]
}

// XSpan is the number of cells of the Extent in X
func (e Extent) XSpan() int {
	return e[2] - e[0]
}

// YSpan is the number of cells of the Extent in Y
func (e Extent) YSpan() int {
	return e[3] - e[1]
}

// IsEmpty reports whether the Extent covers no cells.
func (e Extent) IsEmpty() bool {
	return e.XSpan() <= 0 || e.YSpan() <= 0
}

/* ========================= OPERATIONS ========================= */

// Union returns the smallest Extent covering both. Empty extents do not contribute.
func (e Extent) Union(o Extent) Extent {
	switch {
	case o.IsEmpty():
		return e
	case e.IsEmpty():
		return o
	}
	return Extent{
		min(e[0], o[0]),
		min(e[1], o[1]),
		max(e[2], o[2]),
		max(e[3], o[3]),
	}
}

// Intersect returns the cells covered by both. The result can be empty.
func (e Extent) Intersect(o Extent) Extent {
	return Extent{
		max(e[0], o[0]),
		max(e[1], o[1]),
		min(e[2], o[2]),
		min(e[3], o[3]),
	}
}

// Contains reports whether every cell of o is in e. An empty o is always contained.
func (e Extent) Contains(o Extent) bool {
	if o.IsEmpty() {
		return true
	}
	return e[0] <= o[0] && e[1] <= o[1] && o[2] <= e[2] && o[3] <= e[3]
}
