package mathhelp

import "math"

func BetweenInc(f, p, q float64) bool {
	if p <= q {
		return p <= f && f <= q
	}
	return q <= f && f <= p
}

// CellLimit bounds cell ordinates derived from world ordinates. It is far outside any grid the
// binary format can hold, and small enough that spans of two ordinates never overflow an int.
const CellLimit = 1 << 30

// FloorDiv returns floor(w / d) as an int, for mapping a world ordinate to a cell ordinate.
// The result is clamped to ±CellLimit. NaN maps to +CellLimit, so a range starting at NaN is empty.
func FloorDiv(w float64, d int) int {
	return toCell(math.Floor(w/float64(d)), CellLimit)
}

// CeilDiv returns ceil(w / d) as an int, for mapping an exclusive world maximum to a cell ordinate.
// The result is clamped to ±CellLimit. NaN maps to -CellLimit, so a range ending at NaN is empty.
func CeilDiv(w float64, d int) int {
	return toCell(math.Ceil(w/float64(d)), -CellLimit)
}

func toCell(q float64, nan int) int {
	switch {
	case math.IsNaN(q):
		return nan
	case q >= CellLimit:
		return CellLimit
	case q <= -CellLimit:
		return -CellLimit
	}
	return int(q)
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
