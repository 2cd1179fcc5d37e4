package mapslicehelp

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// AsSet returns the distinct elements as a set.
func AsSet[T comparable](elements []T) map[T]struct{} {
	set := make(map[T]struct{}, len(elements))
	for _, element := range elements {
		set[element] = struct{}{}
	}
	return set
}

// FindLastKeyWithMaxValue returns the newest key holding the highest value, and how many keys share it.
func FindLastKeyWithMaxValue[K comparable, V constraints.Ordered](m *orderedmap.OrderedMap[K, V]) (maxK K, maxV V, numWinners uint) {
	first := true
	for p := m.Newest(); p != nil; p = p.Prev() {
		if first || p.Value > maxV {
			maxK = p.Key
			maxV = p.Value
			numWinners = 1
			first = false
			continue
		}
		if p.Value == maxV {
			numWinners++
		}
	}
	return
}

func OrderedMapKeys[K comparable, V any](m *orderedmap.OrderedMap[K, V]) []K {
	l := make([]K, m.Len())
	i := 0
	for p := m.Oldest(); p != nil; p = p.Next() {
		l[i] = p.Key
		i++
	}
	return l
}

// Histogram counts the occurrences of each value, keyed in ascending value order.
func Histogram[T constraints.Ordered](values []T) *orderedmap.OrderedMap[T, int] {
	counts := make(map[T]int)
	for _, v := range values {
		counts[v]++
	}
	keys := make([]T, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	h := orderedmap.New[T, int](len(keys))
	for _, k := range keys {
		h.Set(k, counts[k])
	}
	return h
}
