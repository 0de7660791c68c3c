// Package preview renders an optional WebP thumbnail sidecar from a
// finished output file, using its smallest overview so no full-resolution
// pixels are ever read back.
package preview

import (
	"fmt"
	"image"
	"math"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/gen2brain/webp"
)

// DefaultQuality is the WebP quality of the preview sidecar.
const DefaultQuality = 85

// Write renders a thumbnail of the raster at path and writes it next to
// it as a .webp sidecar. Single-band rasters render as a min/max
// stretched grayscale; rasters with three or more bands as RGB.
func Write(path, dst string, quality int) error {
	if quality <= 0 {
		quality = DefaultQuality
	}

	ds, err := godal.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s for preview: %w", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return fmt.Errorf("%s: no raster bands", path)
	}

	img, err := render(bands)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating preview %s: %w", dst, err)
	}
	if err := webp.Encode(f, img, webp.Options{Quality: quality}); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("encoding preview %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("closing preview %s: %w", dst, err)
	}
	return nil
}

// render reads the smallest overview of each band and composes the
// thumbnail image.
func render(bands []godal.Band) (image.Image, error) {
	small, w, h := smallestOverview(bands[0])

	read := func(b godal.Band) ([]float64, error) {
		buf := make([]float64, w*h)
		if err := b.Read(0, 0, buf, w, h); err != nil {
			return nil, fmt.Errorf("reading preview pixels: %w", err)
		}
		return buf, nil
	}

	if len(bands) < 3 {
		samples, err := read(small)
		if err != nil {
			return nil, err
		}
		return grayImage(samples, w, h), nil
	}

	var rgb [3][]float64
	for i := 0; i < 3; i++ {
		b, bw, bh := smallestOverview(bands[i])
		if bw != w || bh != h {
			return nil, fmt.Errorf("band %d overview is %dx%d, band 1 is %dx%d", i+1, bw, bh, w, h)
		}
		samples, err := read(b)
		if err != nil {
			return nil, err
		}
		rgb[i] = samples
	}
	return rgbImage(rgb, w, h), nil
}

// smallestOverview returns the band's smallest overview, or the band
// itself when it has none (single-tile rasters).
func smallestOverview(b godal.Band) (godal.Band, int, int) {
	best := b
	st := b.Structure()
	w, h := st.SizeX, st.SizeY
	for _, ov := range b.Overviews() {
		ost := ov.Structure()
		if ost.SizeX < w {
			best, w, h = ov, ost.SizeX, ost.SizeY
		}
	}
	return best, w, h
}

// grayImage min/max stretches samples into an 8-bit grayscale image.
// No-data NaN samples render black.
func grayImage(samples []float64, w, h int) *image.Gray {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range samples {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range samples {
		if math.IsNaN(v) {
			continue
		}
		img.Pix[i] = clampByte((v - lo) * scale)
	}
	return img
}

// rgbImage composes three byte-range sample planes into an opaque NRGBA
// image.
func rgbImage(rgb [3][]float64, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4+0] = clampByte(rgb[0][i])
		img.Pix[i*4+1] = clampByte(rgb[1][i])
		img.Pix[i*4+2] = clampByte(rgb[2][i])
		img.Pix[i*4+3] = 255
	}
	return img
}

func clampByte(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
