package gpkg

import (
	"path/filepath"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/rastercache/processing"
	"github.com/pdok/rastercache/raster"
)

type row struct {
	geometry geom.Geometry
	value    any
}

// writeGeopackage builds a GeoPackage with one table "areas" holding a geometry and a "kind" column.
func writeGeopackage(t *testing.T, rows []row) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.gpkg")
	h, err := gpkg.Open(path)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Exec(`CREATE TABLE "areas" (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB, kind INTEGER);`)
	require.NoError(t, err)
	err = h.AddGeometryTable(gpkg.TableDescription{
		Name:          "areas",
		ShortName:     "areas",
		Description:   "areas",
		GeometryField: "geom",
		GeometryType:  gpkg.Geometry,
		SRS:           4326,
		Z:             gpkg.Prohibited,
		M:             gpkg.Prohibited,
	})
	require.NoError(t, err)

	for _, r := range rows {
		var sb any
		if r.geometry != nil {
			sb, err = gpkg.NewBinary(4326, r.geometry)
			require.NoError(t, err)
		}
		_, err = h.Exec(`INSERT INTO "areas" (geom, kind) VALUES (?, ?);`, sb, r.value)
		require.NoError(t, err)
	}
	return path
}

func TestSourceGeopackage_Rasterize(t *testing.T) {
	path := writeGeopackage(t, []row{
		{geom.Polygon{{{0, 0}, {8, 0}, {8, 8}, {0, 8}}}, 1},
		{geom.MultiPolygon{{{{4, 4}, {8, 4}, {8, 8}, {4, 8}}}}, 2},
		{geom.Point{1, 9}, 3},
		{geom.LineString{{9, 1}, {9, 2}}, nil},
	})

	source, err := Open(path)
	require.NoError(t, err)
	defer source.Close()

	tables, err := source.GetTableInfo()
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "areas", tables[0].Name)
	assert.Equal(t, "geom", tables[0].GeometryColumn)
	assert.Equal(t, gpkg.Geometry, tables[0].GeometryType)
	assert.Equal(t, 4326, tables[0].SRSID)

	require.NoError(t, source.SelectTable(""))
	source.ValueColumn = "kind"

	g, err := raster.New[uint16](4)
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	stats, err := processing.Rasterize(source, g, processing.Options{Log: log})
	require.NoError(t, err)
	assert.Equal(t, processing.Stats{Read: 4, Written: 3, Skipped: 1}, stats)

	values, err := g.Read(geom.Extent{0, 0, 8, 12})
	require.NoError(t, err)
	assert.Equal(t, []uint16{
		1, 1,
		1, 2,
		3, 0,
	}, values)
}

func TestSourceGeopackage_SelectTable(t *testing.T) {
	source, err := Open(writeGeopackage(t, nil))
	require.NoError(t, err)
	defer source.Close()

	assert.ErrorIs(t, source.SelectTable("roads"), ErrTableNotFound)
	assert.ErrorIs(t, source.ReadFeatures(make(chan processing.Feature)), ErrTableNotFound)
	require.NoError(t, source.SelectTable("areas"))
	assert.Equal(t, `SELECT "geom", "" FROM "areas" ORDER BY rowid;`, source.selectSQL())
}

func TestSourceGeopackage_UnknownColumn(t *testing.T) {
	source, err := Open(writeGeopackage(t, []row{{geom.Point{1, 1}, 1}}))
	require.NoError(t, err)
	defer source.Close()
	require.NoError(t, source.SelectTable("areas"))
	source.ValueColumn = "missing"

	g, err := raster.New[uint16](4)
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	_, err = processing.Rasterize(source, g, processing.Options{Log: log})
	assert.Error(t, err)
}

func TestGeometryTypeFromString(t *testing.T) {
	for name, want := range map[string]gpkg.GeometryType{
		"polygon":      gpkg.Polygon,
		"MULTIPOLYGON": gpkg.MultiPolygon,
		"Point":        gpkg.Point,
		"curve":        gpkg.Geometry,
	} {
		assert.Equal(t, want, geometryTypeFromString(name), name)
	}
}
