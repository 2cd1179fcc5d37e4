package raster

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_Image(t *testing.T) {
	g, err := FromCells(1, 0, 0, 2, 2, []uint16{0, 1, 2, 4})
	require.NoError(t, err)

	img := g.Image(geom.Extent{0, 0, 2, 2})
	require.Equal(t, 2, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())
	// north up: the first image row is the highest grid row
	assert.Equal(t, uint8(127), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), img.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(0, 1).Y)
	assert.Equal(t, uint8(63), img.GrayAt(1, 1).Y)
}

func TestGrid_ImageFrame(t *testing.T) {
	g, err := FromCells(1, 0, 0, 2, 2, []uint16{0, 1, 2, 4})
	require.NoError(t, err)

	img := g.Image(geom.Extent{-1, 0, 3, 3})
	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 3, img.Bounds().Dy())
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), img.GrayAt(2, 1).Y)
	assert.Equal(t, uint8(63), img.GrayAt(2, 2).Y)
	assert.Equal(t, uint8(0), img.GrayAt(3, 2).Y)
}

func TestGrid_ImageAllZero(t *testing.T) {
	g := newGrid(t, 4)
	require.NoError(t, g.Write(geom.Polygon{square(0, 0, 8, 8)}, 0))
	img := g.Image(geom.Extent{0, 0, 8, 8})
	assert.Equal(t, []uint8{0, 0, 0, 0}, img.Pix)

	assert.Equal(t, 0, g.Image(geom.Extent{4, 4, 4, 4}).Bounds().Dx())
}
