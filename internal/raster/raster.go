// Package raster holds the data-side stages of the optimization pipeline:
// the input descriptor, bounded-memory strip planning, transparency (mask)
// conversion, and streaming decimal rounding. All stages operate on
// horizontal strips through the StripReader/StripWriter contract so the
// logic stays independent of the raster library that backs it.
package raster

import "fmt"

// SampleType identifies the numeric type of raster samples.
type SampleType string

const (
	Byte    SampleType = "Byte"
	UInt16  SampleType = "UInt16"
	Int16   SampleType = "Int16"
	UInt32  SampleType = "UInt32"
	Int32   SampleType = "Int32"
	Float32 SampleType = "Float32"
	Float64 SampleType = "Float64"
)

// Size returns the sample size in bytes.
func (t SampleType) Size() int {
	switch t {
	case Byte:
		return 1
	case UInt16, Int16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// IsFloat reports whether samples are floating point.
func (t SampleType) IsFloat() bool {
	return t == Float32 || t == Float64
}

// Info describes an opened input raster. It is assembled once when the
// file is opened and read-only afterwards.
type Info struct {
	Path       string
	Width      int
	Height     int
	Bands      int // sample bands, alpha included
	SampleType SampleType
	NoData     *float64

	HasAlpha  bool
	AlphaBand int // 1-based band index, 0 when absent
	HasMask   bool

	// Reference system as recorded in the file.
	CRSName      string
	CRSEPSG      int
	CRSWKT       string
	VerticalName string // vertical datum already present, "" when none

	GeoTransform [6]float64
	Metadata     map[string]string
}

// SampleBands returns the 1-based indices of the non-alpha sample bands.
func (in *Info) SampleBands() []int {
	bands := make([]int, 0, in.Bands)
	for b := 1; b <= in.Bands; b++ {
		if b != in.AlphaBand {
			bands = append(bands, b)
		}
	}
	return bands
}

// StripReader reads one horizontal strip of samples from a band. dst must
// hold height*width samples; band indices are 1-based.
type StripReader interface {
	ReadStrip(band, y0, height int, dst []float64) error
}

// StripWriter writes one horizontal strip of samples to a band.
type StripWriter interface {
	WriteStrip(band, y0, height int, src []float64) error
}

// BlockPlan partitions a raster into horizontal strips under a pixel
// budget. Every strip except possibly the last holds BlockHeight rows;
// the last may be shorter. Plans are ephemeral and recomputed per raster.
type BlockPlan struct {
	Width       int
	Height      int
	BlockHeight int
	PixelBudget int64 // bytes available for one strip
}

// PlanBlocks computes a strip layout such that
// blockHeight * width * bytesPerSample <= budget. The block height is at
// least one row: a raster wider than the budget still processes, one row
// at a time, since a single row is the smallest addressable unit.
func PlanBlocks(width, height, bytesPerSample int, budget int64) (BlockPlan, error) {
	if width <= 0 || height <= 0 {
		return BlockPlan{}, fmt.Errorf("invalid raster dimensions %dx%d", width, height)
	}
	if bytesPerSample <= 0 {
		return BlockPlan{}, fmt.Errorf("invalid sample size %d", bytesPerSample)
	}
	if budget <= 0 {
		budget = DefaultStripBudget
	}

	rowBytes := int64(width) * int64(bytesPerSample)
	bh := int(budget / rowBytes)
	if bh < 1 {
		bh = 1
	}
	if bh > height {
		bh = height
	}
	return BlockPlan{
		Width:       width,
		Height:      height,
		BlockHeight: bh,
		PixelBudget: budget,
	}, nil
}

// Strips returns the number of strips in the plan.
func (p BlockPlan) Strips() int {
	return (p.Height + p.BlockHeight - 1) / p.BlockHeight
}

// Strip returns the starting row and height of strip i.
func (p BlockPlan) Strip(i int) (y0, height int) {
	y0 = i * p.BlockHeight
	height = p.BlockHeight
	if y0+height > p.Height {
		height = p.Height - y0
	}
	return y0, height
}
