package cog

import "fmt"

// Layout describes the pyramid structure of a cloud-optimized output:
// the tile grid and the chain of reduced-resolution overviews.
type Layout struct {
	Width     uint32
	Height    uint32
	TileSize  int
	Overviews []OverviewLevel
}

// OverviewLevel is one reduced-resolution level. Factor is the decimation
// relative to the full-resolution raster (2, 4, 8, ...).
type OverviewLevel struct {
	Factor int
	Width  uint32
	Height uint32
}

// Factors returns the decimation factors of every overview level, in
// ascending order, in the form overview builders expect.
func (l *Layout) Factors() []int {
	factors := make([]int, len(l.Overviews))
	for i, ov := range l.Overviews {
		factors[i] = ov.Factor
	}
	return factors
}

// ComputeLayout plans the overview chain for a raster: levels halve until
// both dimensions fit within a single tile. A raster already within one
// tile gets no overviews.
func ComputeLayout(width, height uint32, tileSize int) (*Layout, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("empty raster %dx%d", width, height)
	}
	if tileSize <= 0 || tileSize%16 != 0 {
		return nil, fmt.Errorf("tile size %d is not a positive multiple of 16", tileSize)
	}

	layout := &Layout{Width: width, Height: height, TileSize: tileSize}
	ts := uint32(tileSize)

	factor := 2
	w, h := width, height
	for w > ts || h > ts {
		w = halve(w)
		h = halve(h)
		layout.Overviews = append(layout.Overviews, OverviewLevel{Factor: factor, Width: w, Height: h})
		factor *= 2
	}
	return layout, nil
}

func halve(v uint32) uint32 {
	v = (v + 1) / 2
	if v == 0 {
		v = 1
	}
	return v
}
