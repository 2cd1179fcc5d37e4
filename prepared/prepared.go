// Package prepared turns a go-spatial geometry into a form that can be tested against many small extents
// (grid cells) cheaply.
//
// Prepare flattens the geometry once into points, line segments and polygon edges. Polygon edges are
// bucketed into vertical bands along x, so both the edge-touches-box test and the point-in-polygon ray cast
// only look at the edges that can matter for a given x range.
// All tests are on closed sets: touching a cell's boundary counts as intersecting it.
package prepared

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-spatial/geom"

	"github.com/pdok/rastercache/geomhelp"
	"github.com/pdok/rastercache/mathhelp"
)

const maxBands = 1024

var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

type edge struct {
	a, b [2]float64
	ring int // index into Geometry.rings for polygon edges
}

// polygon refers to a run of rings, the first one being the exterior.
type polygon struct {
	firstRing, ringCount int
}

// Geometry is a prepared geometry. It is read-only after Prepare and safe for concurrent use.
type Geometry struct {
	points   [][2]float64
	segments []edge
	edges    []edge
	polygons []polygon
	rings    int

	extent      geom.Extent
	edgesExtent geom.Extent
	empty       bool

	bands     [][]int
	bandMinX  float64
	bandWidth float64
}

// Prepare builds the acceleration structure for g. A nil or empty geometry prepares fine and intersects nothing.
func Prepare(g geom.Geometry) (*Geometry, error) {
	p := &Geometry{
		extent:      emptyExtent(),
		edgesExtent: emptyExtent(),
	}
	if err := p.add(g); err != nil {
		return nil, err
	}
	p.empty = len(p.points) == 0 && len(p.segments) == 0 && len(p.edges) == 0
	p.index()
	return p, nil
}

// IsEmpty reports whether the geometry has no coordinates at all.
func (p *Geometry) IsEmpty() bool {
	return p.empty
}

// Extent returns the envelope of the geometry. ok is false for an empty geometry.
func (p *Geometry) Extent() (e geom.Extent, ok bool) {
	if p.empty {
		return geom.Extent{}, false
	}
	return p.extent, true
}

// IntersectsExtent tests whether the geometry and the closed box share at least one point.
func (p *Geometry) IntersectsExtent(box geom.Extent) bool {
	if p.empty || !geomhelp.ExtentsIntersect(p.extent, box) {
		return false
	}
	for _, pt := range p.points {
		if geomhelp.ExtentContainsPoint(box, pt) {
			return true
		}
	}
	for _, s := range p.segments {
		if geomhelp.SegmentIntersectsExtent(s.a, s.b, box) {
			return true
		}
	}
	if len(p.edges) == 0 || !geomhelp.ExtentsIntersect(p.edgesExtent, box) {
		return false
	}
	if p.edgeTouches(box) {
		return true
	}
	// no edge touches the box, so the box is either completely inside or completely outside
	return p.polygonsContain([2]float64{box[0], box[1]})
}

// containsPoint tests whether pt lies on or inside any of the geometry's parts.
func (p *Geometry) containsPoint(pt [2]float64) bool {
	return p.IntersectsExtent(geom.Extent{pt[0], pt[1], pt[0], pt[1]})
}

func (p *Geometry) edgeTouches(box geom.Extent) bool {
	lo, hi := p.bandOf(box[0]), p.bandOf(box[2])
	for b := lo; b <= hi; b++ {
		for _, i := range p.bands[b] {
			e := p.edges[i]
			if geomhelp.SegmentIntersectsExtent(e.a, e.b, box) {
				return true
			}
		}
	}
	return false
}

func (p *Geometry) polygonsContain(pt [2]float64) bool {
	if !mathhelp.BetweenInc(pt[0], p.edgesExtent[0], p.edgesExtent[2]) {
		return false
	}
	parity := make([]bool, p.rings)
	for _, i := range p.bands[p.bandOf(pt[0])] {
		e := p.edges[i]
		intersects, on := geomhelp.RayIntersect(pt, e.a, e.b)
		if on {
			return true
		}
		if intersects {
			parity[e.ring] = !parity[e.ring]
		}
	}
	for _, poly := range p.polygons {
		if !parity[poly.firstRing] {
			continue
		}
		inHole := false
		for r := poly.firstRing + 1; r < poly.firstRing+poly.ringCount; r++ {
			if parity[r] {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

//nolint:cyclop
func (p *Geometry) add(g geom.Geometry) error {
	switch g := g.(type) {
	case nil:
	case geom.Point:
		p.addPoint(g)
	case *geom.Point:
		if g != nil {
			p.addPoint(*g)
		}
	case geom.MultiPoint:
		for _, pt := range g {
			p.addPoint(pt)
		}
	case geom.Line:
		p.addLine(g[:])
	case geom.LineString:
		p.addLine(g)
	case *geom.LineString:
		if g != nil {
			p.addLine(*g)
		}
	case geom.MultiLineString:
		for _, ls := range g {
			p.addLine(ls)
		}
	case geom.Polygon:
		p.addPolygon(g)
	case *geom.Polygon:
		if g != nil {
			p.addPolygon(*g)
		}
	case geom.MultiPolygon:
		for _, poly := range g {
			p.addPolygon(poly)
		}
	case *geom.MultiPolygon:
		if g != nil {
			for _, poly := range *g {
				p.addPolygon(poly)
			}
		}
	case geom.Extent:
		p.addPolygon(extentAsPolygon(g))
	case *geom.Extent:
		if g != nil {
			p.addPolygon(extentAsPolygon(*g))
		}
	case geom.Collection:
		for _, sub := range g {
			if err := p.add(sub); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}
	return nil
}

func (p *Geometry) addPoint(pt [2]float64) {
	p.points = append(p.points, pt)
	expand(&p.extent, pt)
}

func (p *Geometry) addLine(ls [][2]float64) {
	switch len(ls) {
	case 0:
		return
	case 1:
		p.addPoint(ls[0])
		return
	}
	for i := 0; i < len(ls)-1; i++ {
		p.segments = append(p.segments, edge{a: ls[i], b: ls[i+1], ring: -1})
		expand(&p.extent, ls[i])
	}
	expand(&p.extent, ls[len(ls)-1])
}

// addPolygon adds the rings of a polygon. An exterior with less than 3 vertices has no interior
// and is treated as a line; holes like that are ignored.
func (p *Geometry) addPolygon(poly geom.Polygon) {
	if len(poly) == 0 {
		return
	}
	if len(poly[0]) < 3 {
		p.addLine(poly[0])
		return
	}
	entry := polygon{firstRing: p.rings}
	for ringIdx, ring := range poly {
		if ringIdx > 0 && len(ring) < 3 {
			continue
		}
		// Rings may or may not repeat the first vertex at the end; wrapping around covers both.
		for i := range ring {
			a, b := ring[i], ring[(i+1)%len(ring)]
			expand(&p.extent, a)
			expand(&p.edgesExtent, a)
			if a == b {
				continue
			}
			p.edges = append(p.edges, edge{a: a, b: b, ring: p.rings})
		}
		p.rings++
		entry.ringCount++
	}
	p.polygons = append(p.polygons, entry)
}

// index buckets the polygon edges into bands of equal width along x.
func (p *Geometry) index() {
	if len(p.edges) == 0 {
		return
	}
	n := int(math.Sqrt(float64(len(p.edges))))
	n = mathhelp.Clamp(n, 1, maxBands)
	p.bandMinX = p.edgesExtent[0]
	p.bandWidth = (p.edgesExtent[2] - p.edgesExtent[0]) / float64(n)
	if p.bandWidth <= 0 {
		n = 1
		p.bandWidth = 1
	}
	p.bands = make([][]int, n)
	for i, e := range p.edges {
		lo, hi := p.bandOf(math.Min(e.a[0], e.b[0])), p.bandOf(math.Max(e.a[0], e.b[0]))
		for b := lo; b <= hi; b++ {
			p.bands[b] = append(p.bands[b], i)
		}
	}
}

func (p *Geometry) bandOf(x float64) int {
	b := int(math.Floor((x - p.bandMinX) / p.bandWidth))
	return mathhelp.Clamp(b, 0, len(p.bands)-1)
}

func emptyExtent() geom.Extent {
	return geom.Extent{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

func expand(e *geom.Extent, pt [2]float64) {
	e[0] = math.Min(e[0], pt[0])
	e[1] = math.Min(e[1], pt[1])
	e[2] = math.Max(e[2], pt[0])
	e[3] = math.Max(e[3], pt[1])
}

func extentAsPolygon(e geom.Extent) geom.Polygon {
	return geom.Polygon{{{e[0], e[1]}, {e[2], e[1]}, {e[2], e[3]}, {e[0], e[3]}}}
}
