// Package geojson reads features for rasterization from a GeoJSON FeatureCollection.
package geojson

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"

	"github.com/pdok/rastercache/processing"
)

// IDProperty selects the feature id as value instead of a property.
const IDProperty = "@id"

type featureGeoJSON struct {
	geometry geom.Geometry
	value    any
}

func (f featureGeoJSON) Geometry() geom.Geometry {
	return f.geometry
}

func (f featureGeoJSON) Value() (int64, error) {
	return processing.ToValue(f.value)
}

// Source reads a whole FeatureCollection from r and emits its features in document order.
type Source struct {
	r             io.Reader
	ValueProperty string
}

func NewSource(r io.Reader, valueProperty string) *Source {
	return &Source{r: r, ValueProperty: valueProperty}
}

func (s *Source) ReadFeatures(features chan<- processing.Feature) error {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(s.r).Decode(&fc); err != nil {
		return fmt.Errorf("error decoding the feature collection: %w", err)
	}
	for _, f := range fc.Features {
		features <- featureGeoJSON{geometry: f.Geometry.Geometry, value: s.value(f)}
	}
	return nil
}

func (s *Source) value(f geojson.Feature) any {
	if s.ValueProperty == IDProperty {
		if f.ID == nil {
			return nil
		}
		return *f.ID
	}
	return f.Properties[s.ValueProperty]
}
