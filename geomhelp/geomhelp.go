package geomhelp

import (
	"math"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
)

// from paulmach/orb
// Original implementation: http://rosettacode.org/wiki/Ray-casting_algorithm#Go
// The ray goes from pt in the +y direction; on reports pt lying on the segment.
//
//nolint:cyclop,nestif
func RayIntersect(pt, start, end [2]float64) (intersects, on bool) {
	if start[0] > end[0] {
		start, end = end, start
	}

	if pt[0] == start[0] {
		if pt[1] == start[1] {
			// pt == start
			return false, true
		} else if start[0] == end[0] {
			// vertical segment (start -> end)
			// return true if within the line, check to see if start or end is greater.
			if start[1] > end[1] && start[1] >= pt[1] && pt[1] >= end[1] {
				return false, true
			}

			if end[1] > start[1] && end[1] >= pt[1] && pt[1] >= start[1] {
				return false, true
			}
		}

		// Move the y coordinate to deal with degenerate case
		pt[0] = math.Nextafter(pt[0], math.Inf(1))
	} else if pt[0] == end[0] {
		if pt[1] == end[1] {
			// matching the end point
			return false, true
		}

		pt[0] = math.Nextafter(pt[0], math.Inf(1))
	}

	if pt[0] < start[0] || pt[0] > end[0] {
		return false, false
	}

	if start[1] > end[1] {
		if pt[1] > start[1] {
			return false, false
		} else if pt[1] < end[1] {
			return true, false
		}
	} else {
		if pt[1] > end[1] {
			return false, false
		} else if pt[1] < start[1] {
			return true, false
		}
	}

	rs := (pt[1] - start[1]) / (pt[0] - start[0])
	ds := (end[1] - start[1]) / (end[0] - start[0])

	if rs == ds {
		return false, true
	}

	return rs <= ds, false
}

// ExtentContainsPoint checks whether a point lies in the closed extent, edges included.
func ExtentContainsPoint(e geom.Extent, pt [2]float64) bool {
	return e[0] <= pt[0] && pt[0] <= e[2] && e[1] <= pt[1] && pt[1] <= e[3]
}

// ExtentsIntersect checks whether two closed extents share at least one point.
func ExtentsIntersect(a, b geom.Extent) bool {
	return a[0] <= b[2] && b[0] <= a[2] && a[1] <= b[3] && b[1] <= a[3]
}

// SegmentIntersectsExtent tests whether the segment from p to q touches the closed extent,
// using Liang-Barsky clipping.
// ref: https://en.wikipedia.org/wiki/Liang%E2%80%93Barsky_algorithm
func SegmentIntersectsExtent(p, q [2]float64, e geom.Extent) bool {
	dx := q[0] - p[0]
	dy := q[1] - p[1]
	t0, t1 := 0.0, 1.0
	clip := func(denom, num float64) bool {
		if denom == 0 {
			// parallel to this edge: inside its half plane or not at all
			return num >= 0
		}
		t := num / denom
		if denom < 0 {
			if t > t1 {
				return false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return false
			}
			if t < t1 {
				t1 = t
			}
		}
		return true
	}
	return clip(-dx, p[0]-e[0]) &&
		clip(dx, e[2]-p[0]) &&
		clip(-dy, p[1]-e[1]) &&
		clip(dy, e[3]-p[1]) &&
		t0 <= t1
}

// WktTruncated encodes a geometry as WKT for log and error messages, cut off at maxLen.
// Geometries that cannot be encoded yield a placeholder instead of an error.
func WktTruncated(g geom.Geometry, maxLen uint) string {
	var sb strings.Builder
	if err := wkt.Encode(&sb, g); err != nil {
		return "<unencodable geometry>"
	}
	if maxLen == 0 {
		return sb.String()
	}
	return truncate.StringWithTail(sb.String(), maxLen, "...")
}
