package raster

import (
	"image"
	"math"

	"github.com/go-spatial/geom"

	"github.com/pdok/rastercache/intgeom"
	"github.com/pdok/rastercache/mathhelp"
)

// Image renders the grid as a grayscale image covering maxBounds (world coordinates), one pixel per cell,
// north up. Values are scaled from min(lowest value, 0) to the highest value, cells outside the array are 0.
func (g *Grid[T]) Image(maxBounds geom.Extent) *image.Gray {
	frame := intgeom.Extent{
		mathhelp.FloorDiv(maxBounds[0], g.resolution),
		mathhelp.FloorDiv(maxBounds[1], g.resolution),
		mathhelp.CeilDiv(maxBounds[2], g.resolution),
		mathhelp.CeilDiv(maxBounds[3], g.resolution),
	}
	if frame.IsEmpty() {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}
	img := image.NewGray(image.Rect(0, 0, frame.XSpan(), frame.YSpan()))

	var lowest, highest float64
	for i, v := range g.cells {
		if i == 0 || float64(v) > highest {
			highest = float64(v)
		}
		if i == 0 || float64(v) < lowest {
			lowest = float64(v)
		}
	}
	minVal := math.Min(lowest, 0)
	maxVal := math.Max(highest, minVal+0.01)
	scale := 255 / (maxVal - minVal)

	c := frame.Intersect(g.Bounds())
	for cy := c.MinY(); cy < c.MaxY(); cy++ {
		py := frame.MaxY() - 1 - cy
		for cx := c.MinX(); cx < c.MaxX(); cx++ {
			v := float64(g.cells[(cy-g.y)*g.width+cx-g.x])
			img.Pix[py*img.Stride+cx-frame.MinX()] = uint8(math.Max(0, math.Min(255, (v-minVal)*scale)))
		}
	}
	return img
}
