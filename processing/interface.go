package processing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"
)

var (
	ErrNoValue      = errors.New("feature has no value")
	ErrInvalidValue = errors.New("feature value is not an integer")
)

type Feature interface {
	Geometry() geom.Geometry
	// Value is the integer to store in the cells of the geometry, or a label id in label mode.
	Value() (int64, error)
}

// Source pushes its features into the channel, in a stable order. The caller closes the channel.
type Source interface {
	ReadFeatures(chan<- Feature) error
}

// ToValue converts a column or property value to an integer: integers, integral floats and numeric strings.
// nil yields ErrNoValue.
func ToValue(v any) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, ErrNoValue
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidValue, v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v < -(1<<63) || v >= 1<<63 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, v)
		}
		return int64(v), nil
	case []byte:
		return ToValue(string(v))
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidValue, v)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrInvalidValue, v)
}
