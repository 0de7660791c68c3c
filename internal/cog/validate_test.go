package cog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	kzlib "github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// testLevel describes one pyramid level for buildTestTIFF. tileData holds
// one payload per tile; a nil payload becomes a sparse (zero-count) tile.
type testLevel struct {
	width, height uint32
	subfile       uint32
	tile          uint32
	compression   uint16
	tileData      [][]byte
}

func (l *testLevel) tilesAcross() int { return int((l.width + l.tile - 1) / l.tile) }
func (l *testLevel) tilesDown() int   { return int((l.height + l.tile - 1) / l.tile) }

// buildTestTIFF assembles a little-endian classic TIFF with directories at
// the head of the file followed by tile data, the layout Validate expects.
func buildTestTIFF(t *testing.T, levels []testLevel) []byte {
	t.Helper()

	const numEntries = 11
	ifdSize := 2 + numEntries*12 + 4

	headerEnd := 8 + len(levels)*ifdSize

	// External arrays for levels with more than one tile.
	externalAt := make([]int, len(levels))
	extSize := 0
	for i := range levels {
		n := levels[i].tilesAcross() * levels[i].tilesDown()
		if len(levels[i].tileData) != n {
			t.Fatalf("level %d: %d payloads for %d tiles", i, len(levels[i].tileData), n)
		}
		if n > 1 {
			externalAt[i] = headerEnd + extSize
			extSize += n * 8 // offsets + counts
		}
	}
	dataStart := headerEnd + extSize

	// Assign tile offsets.
	tileOffsets := make([][]uint32, len(levels))
	tileCounts := make([][]uint32, len(levels))
	pos := dataStart
	for i := range levels {
		for _, payload := range levels[i].tileData {
			if payload == nil {
				tileOffsets[i] = append(tileOffsets[i], 0)
				tileCounts[i] = append(tileCounts[i], 0)
				continue
			}
			tileOffsets[i] = append(tileOffsets[i], uint32(pos))
			tileCounts[i] = append(tileCounts[i], uint32(len(payload)))
			pos += len(payload)
		}
	}

	buf := make([]byte, pos)
	le := binary.LittleEndian
	copy(buf, "II")
	le.PutUint16(buf[2:], 42)
	le.PutUint32(buf[4:], 8)

	entry := func(p []byte, tag, typ uint16, count, value uint32) {
		le.PutUint16(p[0:], tag)
		le.PutUint16(p[2:], typ)
		le.PutUint32(p[4:], count)
		le.PutUint32(p[8:], value)
	}

	for i := range levels {
		lv := &levels[i]
		ifdAt := 8 + i*ifdSize
		le.PutUint16(buf[ifdAt:], numEntries)
		e := buf[ifdAt+2:]

		n := len(lv.tileData)
		offVal, cntVal := tileOffsets[i][0], tileCounts[i][0]
		if n > 1 {
			offVal = uint32(externalAt[i])
			cntVal = uint32(externalAt[i] + n*4)
			for j := 0; j < n; j++ {
				le.PutUint32(buf[externalAt[i]+j*4:], tileOffsets[i][j])
				le.PutUint32(buf[externalAt[i]+n*4+j*4:], tileCounts[i][j])
			}
		}

		entry(e[0*12:], tagNewSubfileType, dtLong, 1, lv.subfile)
		entry(e[1*12:], tagImageWidth, dtLong, 1, lv.width)
		entry(e[2*12:], tagImageLength, dtLong, 1, lv.height)
		entry(e[3*12:], tagBitsPerSample, dtShort, 1, 8)
		entry(e[4*12:], tagCompression, dtShort, 1, uint32(lv.compression))
		entry(e[5*12:], tagPhotometric, dtShort, 1, 1)
		entry(e[6*12:], tagSamplesPerPixel, dtShort, 1, 1)
		entry(e[7*12:], tagTileWidth, dtShort, 1, lv.tile)
		entry(e[8*12:], tagTileLength, dtShort, 1, lv.tile)
		entry(e[9*12:], tagTileOffsets, dtLong, uint32(n), offVal)
		entry(e[10*12:], tagTileByteCounts, dtLong, uint32(n), cntVal)

		next := uint32(0)
		if i+1 < len(levels) {
			next = uint32(8 + (i+1)*ifdSize)
		}
		le.PutUint32(buf[ifdAt+2+numEntries*12:], next)
	}

	for i := range levels {
		for j, payload := range levels[i].tileData {
			if payload != nil {
				copy(buf[tileOffsets[i][j]:], payload)
			}
		}
	}
	return buf
}

func rawTile(tile int) []byte {
	return make([]byte, tile*tile)
}

func writeTestCOG(t *testing.T, levels []testLevel) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.tif")
	if err := os.WriteFile(path, buildTestTIFF(t, levels), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	return path
}

func TestValidateAcceptsWellFormedPyramid(t *testing.T) {
	path := writeTestCOG(t, []testLevel{
		{width: 32, height: 32, tile: 16, compression: CompressionNone,
			tileData: [][]byte{rawTile(16), rawTile(16), nil, rawTile(16)}},
		{width: 16, height: 16, subfile: subfileReducedImage, tile: 16, compression: CompressionNone,
			tileData: [][]byte{rawTile(16)}},
	})

	v, err := Validate(path, 16)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(v.Levels) != 2 {
		t.Fatalf("got %d levels, want 2", len(v.Levels))
	}
	if v.Levels[0].Tiles != 4 || v.Levels[0].EmptyTiles != 1 {
		t.Errorf("level 0 = %+v, want 4 tiles with 1 empty", v.Levels[0])
	}
	if v.TileSize != 16 || v.Compression != CompressionNone {
		t.Errorf("tile size %d compression %d, want 16 / none", v.TileSize, v.Compression)
	}
}

func TestValidateRejectsMaskOnlyFile(t *testing.T) {
	path := writeTestCOG(t, []testLevel{
		{width: 16, height: 16, subfile: subfileMask, tile: 16, compression: CompressionNone,
			tileData: [][]byte{rawTile(16)}},
	})

	_, err := Validate(path, 16)
	var lerr *LayoutError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *LayoutError for a file with only mask directories", err)
	}
}

func TestValidateRejectsMissingOverview(t *testing.T) {
	path := writeTestCOG(t, []testLevel{
		{width: 32, height: 32, tile: 16, compression: CompressionNone,
			tileData: [][]byte{rawTile(16), rawTile(16), rawTile(16), rawTile(16)}},
	})

	_, err := Validate(path, 16)
	var lerr *LayoutError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *LayoutError", err)
	}
}

func TestValidateRejectsWrongTileSize(t *testing.T) {
	path := writeTestCOG(t, []testLevel{
		{width: 16, height: 16, tile: 16, compression: CompressionNone,
			tileData: [][]byte{rawTile(16)}},
	})
	var lerr *LayoutError
	if _, err := Validate(path, 512); !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *LayoutError for unexpected tile size", err)
	}
}

func TestCheckHeaderFirst(t *testing.T) {
	good := []IFD{
		{Offset: 8, TileOffsets: []uint64{500, 756}},
		{Offset: 200, TileOffsets: []uint64{1012}},
	}
	if err := checkHeaderFirst("f.tif", good, 2048); err != nil {
		t.Errorf("header-first layout rejected: %v", err)
	}

	bad := []IFD{
		{Offset: 8, TileOffsets: []uint64{100}},
		{Offset: 500, TileOffsets: []uint64{756}},
	}
	var lerr *LayoutError
	if err := checkHeaderFirst("f.tif", bad, 2048); !errors.As(err, &lerr) {
		t.Errorf("trailing directory accepted: %v", err)
	}
}

func TestCheckTilingRejectsStrips(t *testing.T) {
	images := []*IFD{{Width: 1024, Height: 1024}}
	var lerr *LayoutError
	if err := checkTiling("f.tif", images, 0); !errors.As(err, &lerr) {
		t.Errorf("stripped image accepted: %v", err)
	}
}

func TestDecodeTileDeflate(t *testing.T) {
	raw := rawTile(16)
	for i := range raw {
		raw[i] = byte(i)
	}
	var comp bytes.Buffer
	zw := kzlib.NewWriter(&comp)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("compressing: %v", err)
	}
	zw.Close()

	ifd := &IFD{Compression: CompressionDeflate, TileWidth: 16, TileHeight: 16,
		SamplesPerPixel: 1, BitsPerSample: []uint16{8}, PlanarConfig: 1}
	out, err := decodeTile(ifd, comp.Bytes())
	if err != nil {
		t.Fatalf("decodeTile: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Error("deflate round trip altered samples")
	}
}

func TestDecodeTileZSTD(t *testing.T) {
	raw := rawTile(16)
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd encoder: %v", err)
	}
	comp := enc.EncodeAll(raw, nil)
	enc.Close()

	ifd := &IFD{Compression: CompressionZSTD, TileWidth: 16, TileHeight: 16,
		SamplesPerPixel: 1, BitsPerSample: []uint16{8}, PlanarConfig: 1}
	out, err := decodeTile(ifd, comp)
	if err != nil {
		t.Fatalf("decodeTile: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Error("zstd round trip altered samples")
	}
}

func TestDecodeTileNoDecoder(t *testing.T) {
	ifd := &IFD{Compression: CompressionLERC}
	if _, err := decodeTile(ifd, []byte{1, 2, 3}); err != errNoDecoder {
		t.Errorf("LERC decode error = %v, want errNoDecoder", err)
	}
}
