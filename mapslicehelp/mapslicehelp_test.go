package mapslicehelp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestAsSet(t *testing.T) {
	set := AsSet([]string{"plain", "wide", "plain"})
	assert.Len(t, set, 2)
	assert.Contains(t, set, "wide")
	assert.NotContains(t, set, "labelled")
}

func TestFindLastKeyWithMaxValue(t *testing.T) {
	m := orderedmap.New[string, int]()
	m.Set("a", 3)
	m.Set("b", 5)
	m.Set("c", 5)
	m.Set("d", 1)

	k, v, n := FindLastKeyWithMaxValue(m)
	assert.Equal(t, "c", k)
	assert.Equal(t, 5, v)
	assert.Equal(t, uint(2), n)
}

func TestOrderedMapKeys(t *testing.T) {
	m := orderedmap.New[int, string]()
	m.Set(3, "x")
	m.Set(1, "y")
	m.Set(2, "z")
	assert.Equal(t, []int{3, 1, 2}, OrderedMapKeys(m))
}

func TestHistogram(t *testing.T) {
	h := Histogram([]uint16{4, 0, 4, 1, 0, 4})
	assert.Equal(t, []uint16{0, 1, 4}, OrderedMapKeys(h))
	count, _ := h.Get(4)
	assert.Equal(t, 3, count)

	assert.Equal(t, 0, Histogram([]uint16{}).Len())
}
