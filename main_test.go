package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/rastercache/raster"
)

const areas = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"kind": 1},
   "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [8, 0], [8, 8], [0, 8], [0, 0]]]}},
  {"type": "Feature", "properties": {"kind": 2},
   "geometry": {"type": "Point", "coordinates": [5, 5]}}
]}`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"rastercache", "--logLevel", "error"}, args...))
	return out.String(), err
}

func buildAreas(t *testing.T, root string, extra ...string) {
	t.Helper()
	source := filepath.Join(t.TempDir(), "areas.geojson")
	require.NoError(t, os.WriteFile(source, []byte(areas), 0o600))
	args := append([]string{"--cacheRoot", root}, extra...)
	args = append(args, "build", "--source", source, "--value", "kind", "--level", "0", "--mode", "base")
	_, err := run(t, "", args...)
	require.NoError(t, err)
}

func TestBuildAndQuery(t *testing.T) {
	root := t.TempDir()
	buildAreas(t, root)
	assert.FileExists(t, filepath.Join(root, "plain_base_level_0"))

	out, err := run(t, "0,0,4,4\n8,8,12,12\n\nPOLYGON ((0 0, 8 0, 8 8, 0 8, 0 0))\nnonsense\n",
		"--cacheRoot", root, "query", "--level", "0", "--mode", "base")
	require.NoError(t, err)
	assert.Equal(t, "[1]\n[]\n[1,1,1,2]\nnull\n", out)

	_, err = run(t, "0,0,4,4\n", "--cacheRoot", root, "query", "--level", "1", "--mode", "base")
	assert.Error(t, err)
}

func TestBuildWide(t *testing.T) {
	root := t.TempDir()
	buildAreas(t, root, "--variant", "wide", "--resolution", "8")
	assert.FileExists(t, filepath.Join(root, "wide_base_level_0"))

	out, err := run(t, "", "--cacheRoot", root, "--variant", "wide", "info", "--level", "0", "--mode", "base")
	require.NoError(t, err)
	assert.Contains(t, out, "resolution: 8\n")
	assert.Contains(t, out, "size:       1 x 1\n")
	assert.Contains(t, out, "  2: 1\n")
}

func TestBuildLabels(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, "", "--cacheRoot", root, "build", "--source", "x.geojson", "--value", "kind", "--level", "0", "--mode", "base", "--labels")
	assert.Error(t, err, "labels need the labelled variant")

	buildAreas(t, root, "--variant", "labelled")
	out, err := run(t, "", "--cacheRoot", root, "--variant", "labelled",
		"info", "--file", filepath.Join(root, "labelled_base_level_0"))
	require.NoError(t, err)
	assert.Contains(t, out, "variant:    labelled (1)\n")
	assert.Contains(t, out, "most common: 1 (3 cells)\n")
}

func TestInfoNeedsGrid(t *testing.T) {
	_, err := run(t, "", "--cacheRoot", t.TempDir(), "info")
	assert.Error(t, err)
}

func TestImage(t *testing.T) {
	root := t.TempDir()
	buildAreas(t, root)
	out := filepath.Join(t.TempDir(), "grid.png")
	_, err := run(t, "", "--cacheRoot", root, "image", "--level", "0", "--mode", "base", "--out", out)
	require.NoError(t, err)

	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
}

func TestParseKey(t *testing.T) {
	key, err := parseKey("1, 2,3,4.5")
	require.NoError(t, err)
	assert.Equal(t, geom.Extent{1, 2, 3, 4.5}, key)

	key, err = parseKey("POINT (1 2)")
	require.NoError(t, err)
	assert.NotNil(t, key)

	_, err = parseKey("a,b,c,d")
	assert.Error(t, err)
}

func TestDispatch(t *testing.T) {
	var got string
	narrow := func(f raster.Format[uint16]) error {
		got = f.VariantName()
		return nil
	}
	wide := func(f raster.Format[uint32]) error {
		got = f.VariantName()
		return nil
	}
	for _, variant := range raster.VariantNames {
		require.NoError(t, dispatch(variant, narrow, wide))
		assert.Equal(t, variant, got)
	}
	assert.Error(t, dispatch("sparse", narrow, wide))
}
