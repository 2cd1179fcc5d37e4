package intgeom

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
)

func TestFromWorld(t *testing.T) {
	tests := []struct {
		name       string
		world      geom.Extent
		resolution int
		want       Extent
	}{
		{
			name:       "aligned",
			world:      geom.Extent{0, 0, 8, 8},
			resolution: 4,
			want:       Extent{0, 0, 2, 2},
		},
		{
			name:       "unaligned",
			world:      geom.Extent{1, -1, 9, 3},
			resolution: 4,
			want:       Extent{0, -1, 3, 1},
		},
		{
			name:       "point inside cell",
			world:      geom.Extent{5, 5, 5, 5},
			resolution: 4,
			want:       Extent{1, 1, 2, 2},
		},
		{
			name:       "point on cell corner",
			world:      geom.Extent{4, 4, 4, 4},
			resolution: 4,
			want:       Extent{1, 1, 2, 2},
		},
		{
			name:       "horizontal line",
			world:      geom.Extent{0, 4, 8, 4},
			resolution: 4,
			want:       Extent{0, 1, 2, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromWorld(tt.world, tt.resolution)
			assert.Equal(t, tt.want, got)
			assert.False(t, got.IsEmpty())
		})
	}
}

func TestExtent_ToWorld(t *testing.T) {
	assert.Equal(t, geom.Extent{-4, 0, 8, 12}, Extent{-1, 0, 2, 3}.ToWorld(4))
}

func TestExtent_Union(t *testing.T) {
	tests := []struct {
		name string
		a, b Extent
		want Extent
	}{
		{name: "disjoint", a: Extent{0, 0, 2, 2}, b: Extent{5, -3, 6, 1}, want: Extent{0, -3, 6, 2}},
		{name: "contained", a: Extent{0, 0, 4, 4}, b: Extent{1, 1, 2, 2}, want: Extent{0, 0, 4, 4}},
		{name: "empty left", a: Extent{}, b: Extent{3, 3, 4, 5}, want: Extent{3, 3, 4, 5}},
		{name: "empty right", a: Extent{3, 3, 4, 5}, b: Extent{7, 7, 7, 9}, want: Extent{3, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Union(tt.b))
		})
	}
}

func TestExtent_IntersectContains(t *testing.T) {
	a := Extent{0, 0, 4, 4}
	assert.Equal(t, Extent{2, 2, 4, 4}, a.Intersect(Extent{2, 2, 6, 6}))
	assert.True(t, a.Intersect(Extent{4, 4, 6, 6}).IsEmpty())
	assert.True(t, a.Contains(Extent{1, 1, 4, 4}))
	assert.False(t, a.Contains(Extent{1, 1, 5, 4}))
	assert.True(t, a.Contains(Extent{9, 9, 9, 9}))
	assert.Equal(t, 4, a.XSpan())
}
