package cog

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"io"

	kzlib "github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// decodeTile decompresses one tile payload and returns the raw sample
// bytes. Codecs without a pure-Go decoder (LERC, WebP, JXL) return
// errNoDecoder; validation then falls back to structural checks only.
var errNoDecoder = fmt.Errorf("no decoder for this compression")

func decodeTile(ifd *IFD, data []byte) ([]byte, error) {
	switch ifd.Compression {
	case CompressionNone:
		return data, nil
	case CompressionLZW:
		return decompressTIFFLZW(data)
	case CompressionDeflate, CompressionOldDeflate:
		return inflate(data)
	case CompressionZSTD:
		return unzstd(data)
	case CompressionJPEG:
		return decodeJPEGTile(ifd, data)
	case CompressionLERC, CompressionWebP, CompressionJXL:
		return nil, errNoDecoder
	default:
		return nil, fmt.Errorf("unknown compression %d", ifd.Compression)
	}
}

func inflate(data []byte) ([]byte, error) {
	zr, err := kzlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("deflate tile: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("deflate tile: %w", err)
	}
	return out, nil
}

func unzstd(data []byte) ([]byte, error) {
	zr, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd tile: %w", err)
	}
	defer zr.Close()
	out, err := zr.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd tile: %w", err)
	}
	return out, nil
}

// decodeJPEGTile decodes an abbreviated JPEG tile stream. TIFF stores the
// quantization and Huffman tables once in the JPEGTables tag; each tile
// payload is an SOI plus scan data that must be merged with those tables
// before a stock JPEG decoder can read it.
func decodeJPEGTile(ifd *IFD, data []byte) ([]byte, error) {
	stream := data
	if len(ifd.JPEGTables) > 4 && len(data) > 2 {
		merged := make([]byte, 0, len(ifd.JPEGTables)+len(data))
		merged = append(merged, 0xFF, 0xD8)
		merged = append(merged, ifd.JPEGTables[2:len(ifd.JPEGTables)-2]...) // strip SOI and EOI
		merged = append(merged, data[2:]...)                                // strip SOI
		stream = merged
	}
	img, err := jpeg.Decode(bytes.NewReader(stream))
	if err != nil {
		return nil, fmt.Errorf("jpeg tile: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != int(ifd.TileWidth) || b.Dy() != int(ifd.TileHeight) {
		return nil, fmt.Errorf("jpeg tile: decoded %dx%d, tile grid is %dx%d",
			b.Dx(), b.Dy(), ifd.TileWidth, ifd.TileHeight)
	}
	// Re-expanding to raw samples is unnecessary; the validator only
	// needs proof the payload decodes to a full tile.
	return make([]byte, ifd.DecodedTileSize()), nil
}
