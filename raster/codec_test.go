package raster

import (
	"bytes"
	"io"
	"io/fs"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerSize = 10

func TestEncode_Layout(t *testing.T) {
	g, err := FromCells(4, -3, 2, 2, 1, []uint16{0x0102, 7})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Plain, g))
	assert.Equal(t, []byte{
		0,          // variant
		4,          // resolution
		0xfd, 0xff, // x = -3
		2, 0, // y
		2, 0, // width
		1, 0, // height
		0x02, 0x01, 7, 0, // cells
	}, buf.Bytes())
	assert.Equal(t, headerSize+2*cellSize[uint16](), buf.Len())
}

func TestCodec_RoundTrip(t *testing.T) {
	g := newGrid(t, 4)
	require.NoError(t, g.Write(geom.Polygon{{{-30, -10}, {50, 0}, {12, 44}}}, 3))
	require.NoError(t, g.Write(geom.LineString{{-40, 60}, {80, -20}}, 9))

	var first bytes.Buffer
	require.NoError(t, Encode(&first, Plain, g))

	decoded, err := Decode(bytes.NewReader(first.Bytes()), Plain)
	require.NoError(t, err)
	assert.Equal(t, g.Resolution(), decoded.Resolution())
	assert.Equal(t, g.Bounds(), decoded.Bounds())
	assert.Equal(t, g.Cells(), decoded.Cells())

	var second bytes.Buffer
	require.NoError(t, Encode(&second, Plain, decoded))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestCodec_EmptyGrid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Plain, newGrid(t, 8)))
	assert.Equal(t, headerSize, buf.Len())

	g, err := Decode(&buf, Plain)
	require.NoError(t, err)
	assert.Equal(t, 8, g.Resolution())
	assert.Empty(t, g.Cells())
}

func TestCodec_Labelled(t *testing.T) {
	g := newGrid(t, 2)
	v, err := g.Label(900)
	require.NoError(t, err)
	require.NoError(t, g.Write(geom.Point{1, 1}, v))
	v, err = g.Label(12)
	require.NoError(t, err)
	require.NoError(t, g.Write(geom.Point{3, 1}, v))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Labelled, g))
	assert.Equal(t, []byte{2, 0, 0x84, 0x03, 0, 0, 12, 0, 0, 0}, buf.Bytes()[headerSize:headerSize+10])

	decoded, err := Decode(&buf, Labelled)
	require.NoError(t, err)
	assert.Equal(t, []uint32{900, 12}, decoded.Labels())
	assert.Equal(t, []uint16{1, 2}, decoded.Cells())
	id, ok := decoded.LabelID(decoded.Cells()[1])
	assert.True(t, ok)
	assert.Equal(t, uint32(12), id)
}

func TestCodec_PlainRefusesLabels(t *testing.T) {
	g := newGrid(t, 2)
	_, err := g.Label(1)
	require.NoError(t, err)
	assert.ErrorIs(t, Encode(io.Discard, Plain, g), ErrMetadataUnsupported)
}

func TestCodec_Wide(t *testing.T) {
	g, err := New[uint32](1)
	require.NoError(t, err)
	require.NoError(t, g.Write(geom.Point{0.5, 0.5}, 70000))
	require.NoError(t, g.Write(geom.Point{1.5, 0.5}, 4000000000))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Wide, g))
	assert.Equal(t, headerSize+2*cellSize[uint32](), buf.Len())
	assert.Equal(t, uint8(2), buf.Bytes()[0])

	decoded, err := Decode(&buf, Wide)
	require.NoError(t, err)
	assert.Equal(t, []uint32{70000, 4000000000}, decoded.Cells())
}

func TestDecode_FormatMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Plain, newGrid(t, 4)))

	_, err := Decode(bytes.NewReader(buf.Bytes()), Labelled)
	assert.ErrorIs(t, err, ErrFormatMismatch)

	buf.Bytes()[0] = 2
	_, err = Decode(bytes.NewReader(buf.Bytes()), Plain)
	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestDecode_Truncated(t *testing.T) {
	g, err := FromCells(1, 0, 0, 2, 2, []uint16{1, 2, 3, 4})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Plain, g))
	data := buf.Bytes()

	for _, n := range []int{0, 5, headerSize, len(data) - 1} {
		_, err = Decode(bytes.NewReader(data[:n]), Plain)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "%d bytes", n)
	}
}

func TestDecode_ShortPayloadDoesNotAllocateClaimedSize(t *testing.T) {
	// a wide header claiming 65535x65535 cells (16 GiB) followed by a single cell
	data := []byte{2, 1, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 1, 0, 0, 0}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := Decode(bytes.NewReader(data), Wide)
	runtime.ReadMemStats(&after)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
}

func TestDecode_ZeroResolution(t *testing.T) {
	_, err := Decode(bytes.NewReader(make([]byte, headerSize)), Plain)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestSaveOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid")
	g := newGrid(t, 4)
	require.NoError(t, g.Write(geom.Polygon{square(0, 0, 8, 8)}, 1))

	assert.ErrorIs(t, Save(g, Plain, ""), ErrMissingDestination)
	require.NoError(t, Save(g, Plain, path))

	opened, err := Open(path, Plain)
	require.NoError(t, err)
	assert.Equal(t, path, opened.Filename())
	assert.Equal(t, g.Cells(), opened.Cells())

	// saving without a path goes back to the file it came from
	require.NoError(t, opened.Write(geom.Point{9, 9}, 5))
	require.NoError(t, Save(opened, Plain, ""))
	reopened, err := Open(path, Plain)
	require.NoError(t, err)
	v, ok := reopened.Value(9, 9)
	assert.True(t, ok)
	assert.Equal(t, uint16(5), v)

	_, err = Open(path, Labelled)
	assert.ErrorIs(t, err, ErrFormatMismatch)
	_, err = Open(filepath.Join(t.TempDir(), "missing"), Plain)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
