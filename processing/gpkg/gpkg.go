// Package gpkg reads features for rasterization from a GeoPackage table.
package gpkg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"

	"github.com/pdok/rastercache/processing"
)

var ErrTableNotFound = errors.New("geometry table not found")

type featureGPKG struct {
	geometry geom.Geometry
	value    any
}

func (f featureGPKG) Geometry() geom.Geometry {
	return f.geometry
}

func (f featureGPKG) Value() (int64, error) {
	return processing.ToValue(f.value)
}

type Table struct {
	Name           string
	GeometryColumn string
	GeometryType   gpkg.GeometryType
	SRSID          int
}

func geometryTypeFromString(geometrytype string) gpkg.GeometryType {
	switch strings.ToUpper(geometrytype) {
	case "GEOMETRY":
		return gpkg.Geometry
	case "POINT":
		return gpkg.Point
	case "LINESTRING":
		return gpkg.Linestring
	case "POLYGON":
		return gpkg.Polygon
	case "MULTIPOINT":
		return gpkg.MultiPoint
	case "MULTILINESTRING":
		return gpkg.MultiLinestring
	case "MULTIPOLYGON":
		return gpkg.MultiPolygon
	case "GEOMETRYCOLLECTION":
		return gpkg.GeometryCollection
	default:
		return gpkg.Geometry
	}
}

// SourceGeopackage reads the geometry and one value column of Table.
type SourceGeopackage struct {
	Table       Table
	ValueColumn string
	handle      *gpkg.Handle
}

func Open(file string) (*SourceGeopackage, error) {
	handle, err := gpkg.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error opening GeoPackage: %w", err)
	}
	return &SourceGeopackage{handle: handle}, nil
}

func (source *SourceGeopackage) Close() error {
	return source.handle.Close()
}

// GetTableInfo lists the geometry tables registered in gpkg_geometry_columns.
func (source *SourceGeopackage) GetTableInfo() ([]Table, error) {
	query := `SELECT table_name, column_name, geometry_type_name, srs_id FROM gpkg_geometry_columns ORDER BY table_name;`
	rows, err := source.handle.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error reading the geometry tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		var gtype string
		if err = rows.Scan(&t.Name, &t.GeometryColumn, &gtype, &t.SRSID); err != nil {
			return nil, fmt.Errorf("error reading the source table information: %w", err)
		}
		t.GeometryType = geometryTypeFromString(gtype)
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// SelectTable picks the table to read. An empty name is allowed when the GeoPackage has exactly one geometry table.
func (source *SourceGeopackage) SelectTable(name string) error {
	tables, err := source.GetTableInfo()
	if err != nil {
		return err
	}
	if name == "" {
		if len(tables) != 1 {
			return fmt.Errorf("%w: %d geometry tables, choose one", ErrTableNotFound, len(tables))
		}
		source.Table = tables[0]
		return nil
	}
	for _, t := range tables {
		if t.Name == name {
			source.Table = t
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTableNotFound, name)
}

// selectSQL selects the geometry and value columns, in rowid order
func (source *SourceGeopackage) selectSQL() string {
	return fmt.Sprintf(`SELECT "%s", "%s" FROM "%s" ORDER BY rowid;`,
		source.Table.GeometryColumn, source.ValueColumn, source.Table.Name)
}

func (source *SourceGeopackage) ReadFeatures(features chan<- processing.Feature) error {
	if source.Table.Name == "" {
		return fmt.Errorf("%w: no table selected", ErrTableNotFound)
	}
	rows, err := source.handle.Query(source.selectSQL())
	if err != nil {
		return fmt.Errorf("error querying %s: %w", source.Table.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var wkb []byte
		var f featureGPKG
		if err = rows.Scan(&wkb, &f.value); err != nil {
			return fmt.Errorf("err reading row values: %w", err)
		}
		if wkb != nil {
			decoded, err := gpkg.DecodeGeometry(wkb)
			if err != nil {
				return fmt.Errorf("error decoding the geometry: %w", err)
			}
			f.geometry = decoded.Geometry
		}
		features <- f
	}
	return rows.Err()
}
