package cog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// LayoutError reports a structural violation of the cloud-optimized
// layout. It is distinct from I/O and parse errors: the file is a valid
// TIFF, but not arranged the way a streaming reader requires.
type LayoutError struct {
	Path   string
	Detail string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%s: not cloud-optimized: %s", e.Path, e.Detail)
}

// Validation summarizes a validated output file.
type Validation struct {
	Path        string
	FileSize    int64
	ByteOrder   binary.ByteOrder
	Compression uint16
	TileSize    int
	Levels      []LevelSummary
	MaskLevels  int
	GeoKeys     *GeoKeys
	NoData      string
	Metadata    string
}

// LevelSummary is one resolution level of the validated pyramid.
type LevelSummary struct {
	Width      uint32
	Height     uint32
	Tiles      int
	EmptyTiles int
	DataBytes  int64
}

// Validate opens a finished output file and verifies the structural
// guarantees of the cloud-optimized layout: every level tiled on the
// expected grid, overview dimensions halving down to a single tile,
// directories at the head of the file, and a decodable sample tile per
// level. expectTile of 0 accepts any tile size.
func Validate(path string, expectTile int) (*Validation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := st.Size()
	if size < 16 {
		return nil, &LayoutError{Path: path, Detail: "file too small to be a TIFF"}
	}

	data, err := mmapFile(f.Fd(), int(size))
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	defer munmapFile(data)

	ifds, bo, err := parseTIFF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(ifds) == 0 {
		return nil, &LayoutError{Path: path, Detail: "no image directories"}
	}

	v := &Validation{
		Path:      path,
		FileSize:  size,
		ByteOrder: bo,
	}

	var images, masks []*IFD
	for i := range ifds {
		ifd := &ifds[i]
		if ifd.IsMask() {
			masks = append(masks, ifd)
		} else {
			images = append(images, ifd)
		}
	}
	v.MaskLevels = len(masks)
	if len(images) == 0 {
		return nil, &LayoutError{Path: path, Detail: "every directory is a mask plane, no image directories"}
	}

	main := images[0]
	if main.IsReduced() {
		return nil, &LayoutError{Path: path, Detail: "first directory is a reduced-resolution image"}
	}
	v.Compression = main.Compression
	v.NoData = main.GDALNoData
	v.Metadata = main.GDALMetadata

	if len(main.GeoKeys) > 0 {
		keys, err := ParseGeoKeys(main.GeoKeys, main.GeoAsciiParams)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		v.GeoKeys = keys
	}

	if err := checkTiling(path, images, expectTile); err != nil {
		return nil, err
	}
	v.TileSize = int(main.TileWidth)

	if err := checkPyramid(path, images, v.TileSize); err != nil {
		return nil, err
	}
	if err := checkHeaderFirst(path, ifds, size); err != nil {
		return nil, err
	}
	for _, m := range masks {
		if !m.Tiled() {
			return nil, &LayoutError{Path: path, Detail: "mask directory is not tiled"}
		}
	}

	for _, ifd := range images {
		sum, err := checkLevel(path, ifd, data, size)
		if err != nil {
			return nil, err
		}
		v.Levels = append(v.Levels, sum)
	}

	return v, nil
}

// checkTiling requires every image directory to use the same tile grid.
func checkTiling(path string, images []*IFD, expectTile int) error {
	tw, th := images[0].TileWidth, images[0].TileHeight
	for i, ifd := range images {
		if !ifd.Tiled() {
			return &LayoutError{Path: path, Detail: fmt.Sprintf("level %d is stripped, not tiled", i)}
		}
		if ifd.TileWidth != tw || ifd.TileHeight != th {
			return &LayoutError{Path: path, Detail: fmt.Sprintf(
				"level %d tile grid %dx%d differs from level 0 grid %dx%d",
				i, ifd.TileWidth, ifd.TileHeight, tw, th)}
		}
	}
	if tw != th {
		return &LayoutError{Path: path, Detail: fmt.Sprintf("non-square tiles %dx%d", tw, th)}
	}
	if expectTile != 0 && int(tw) != expectTile {
		return &LayoutError{Path: path, Detail: fmt.Sprintf("tile size %d, expected %d", tw, expectTile)}
	}
	return nil
}

// checkPyramid verifies the overview chain: strictly shrinking, each
// level the halving of its predecessor, ending within a single tile.
func checkPyramid(path string, images []*IFD, tileSize int) error {
	layout, err := ComputeLayout(images[0].Width, images[0].Height, tileSize)
	if err != nil {
		return &LayoutError{Path: path, Detail: err.Error()}
	}
	if len(images)-1 != len(layout.Overviews) {
		return &LayoutError{Path: path, Detail: fmt.Sprintf(
			"%d overview levels, expected %d for a %dx%d raster with %d tiles",
			len(images)-1, len(layout.Overviews), images[0].Width, images[0].Height, tileSize)}
	}
	for i, want := range layout.Overviews {
		ifd := images[i+1]
		if !ifd.IsReduced() {
			return &LayoutError{Path: path, Detail: fmt.Sprintf("overview %d not flagged as reduced-resolution", i+1)}
		}
		if ifd.Width != want.Width || ifd.Height != want.Height {
			return &LayoutError{Path: path, Detail: fmt.Sprintf(
				"overview %d is %dx%d, expected %dx%d",
				i+1, ifd.Width, ifd.Height, want.Width, want.Height)}
		}
	}
	return nil
}

// checkHeaderFirst requires all directories to precede all tile data, the
// property that lets a remote reader fetch the whole structure with one
// ranged request.
func checkHeaderFirst(path string, ifds []IFD, size int64) error {
	var headerEnd, firstData uint64
	firstData = uint64(size)
	for i := range ifds {
		if ifds[i].Offset > headerEnd {
			headerEnd = ifds[i].Offset
		}
		for _, off := range ifds[i].TileOffsets {
			if off != 0 && off < firstData {
				firstData = off
			}
		}
	}
	if headerEnd >= firstData {
		return &LayoutError{Path: path, Detail: fmt.Sprintf(
			"directory at offset %d follows tile data starting at %d", headerEnd, firstData)}
	}
	return nil
}

// checkLevel validates the tile index of one level and decodes its first
// non-empty tile as a sample.
func checkLevel(path string, ifd *IFD, data []byte, size int64) (LevelSummary, error) {
	sum := LevelSummary{Width: ifd.Width, Height: ifd.Height}

	wantTiles := ifd.TilesAcross() * ifd.TilesDown()
	if ifd.PlanarConfig == 2 {
		wantTiles *= int(ifd.SamplesPerPixel)
	}
	if len(ifd.TileOffsets) != wantTiles || len(ifd.TileByteCounts) != wantTiles {
		return sum, &LayoutError{Path: path, Detail: fmt.Sprintf(
			"%dx%d level indexes %d tiles, grid holds %d",
			ifd.Width, ifd.Height, len(ifd.TileOffsets), wantTiles)}
	}
	sum.Tiles = wantTiles

	sampled := false
	for i, off := range ifd.TileOffsets {
		count := ifd.TileByteCounts[i]
		if count == 0 {
			sum.EmptyTiles++
			continue
		}
		if off+count > uint64(size) {
			return sum, &LayoutError{Path: path, Detail: fmt.Sprintf(
				"tile %d extends past end of file (offset %d, %d bytes)", i, off, count)}
		}
		sum.DataBytes += int64(count)
		if sampled {
			continue
		}
		sampled = true
		decoded, err := decodeTile(ifd, data[off:off+count])
		if err == errNoDecoder {
			continue
		}
		if err != nil {
			return sum, &LayoutError{Path: path, Detail: fmt.Sprintf("tile %d does not decode: %v", i, err)}
		}
		if len(decoded) != ifd.DecodedTileSize() {
			return sum, &LayoutError{Path: path, Detail: fmt.Sprintf(
				"tile %d decodes to %d bytes, expected %d", i, len(decoded), ifd.DecodedTileSize())}
		}
	}
	return sum, nil
}
