package raster

import (
	"fmt"
	"math"

	"github.com/pspoerri/cogopt/internal/params"
)

// AlphaThreshold is the opacity cutoff when folding an alpha band into the
// internal mask: pixels below it (90% opaque) become fully transparent.
// Thresholding avoids the halo of semi-transparent edge pixels that lossy
// codecs smear.
const AlphaThreshold = 230

// MaskOpaque and MaskTransparent are the two values of the single-bit
// internal mask, in its 8-bit on-disk form.
const (
	MaskOpaque      = 255
	MaskTransparent = 0
)

// AlphaMaskError reports an algorithm that cannot coexist with a preserved
// alpha band. It is raised while planning, before the codec ever runs.
type AlphaMaskError struct {
	Algorithm params.Algorithm
	Path      string
}

func (e *AlphaMaskError) Error() string {
	return fmt.Sprintf("%s: %s compression cannot carry an independent alpha band; enable alpha-to-mask conversion",
		e.Path, e.Algorithm)
}

// TransparencyPlan describes how transparency moves from its input
// representation (alpha band, no-data value) into the internal mask.
type TransparencyPlan struct {
	DropAlpha   bool // remove the alpha band, folding it into the mask
	AlphaBand   int  // 1-based index of the band to drop, 0 when none
	FoldNoData  bool // additionally mark no-data pixels transparent
	NoData      float64
	SampleBands []int // bands kept as sample bands
}

// NeedsMask reports whether the plan introduces an internal mask band.
func (p *TransparencyPlan) NeedsMask() bool {
	return p.DropAlpha || p.FoldNoData
}

// PlanTransparency decides the transparency conversion for one input
// before any pixel is touched. It fails when the resolved algorithm
// forbids an independent alpha channel and the plan would preserve one.
func PlanTransparency(info *Info, spec *params.Spec) (*TransparencyPlan, error) {
	plan := &TransparencyPlan{
		AlphaBand:   info.AlphaBand,
		SampleBands: info.SampleBands(),
	}

	if info.HasAlpha && spec.MaskAlpha {
		plan.DropAlpha = true
	}
	if info.HasAlpha && !plan.DropAlpha {
		// JPEG family codecs store no independent alpha plane; catching the
		// combination here keeps the failure out of the codec layer.
		switch spec.Algorithm {
		case params.JPEG, params.JXL:
			return nil, &AlphaMaskError{Algorithm: spec.Algorithm, Path: info.Path}
		}
	}
	if !plan.DropAlpha {
		plan.SampleBands = allBands(info.Bands)
	}

	if spec.MaskNodata {
		nodata := info.NoData
		if spec.NoData != nil {
			nodata = spec.NoData
		}
		if nodata != nil {
			plan.FoldNoData = true
			plan.NoData = *nodata
		}
	}

	return plan, nil
}

func allBands(n int) []int {
	bands := make([]int, n)
	for i := range bands {
		bands[i] = i + 1
	}
	return bands
}

// MaskFromAlpha thresholds one strip of alpha samples into mask values,
// in place, and returns the strip as mask bytes.
func MaskFromAlpha(alpha []float64, mask []byte) []byte {
	if cap(mask) < len(alpha) {
		mask = make([]byte, len(alpha))
	}
	mask = mask[:len(alpha)]
	for i, a := range alpha {
		if a < AlphaThreshold {
			mask[i] = MaskTransparent
		} else {
			mask[i] = MaskOpaque
		}
	}
	return mask
}

// FoldNoData marks mask positions transparent where every sample band
// equals the no-data value. NaN no-data matches NaN samples.
func FoldNoData(mask []byte, bands [][]float64, nodata float64) {
	if len(bands) == 0 {
		return
	}
	isNaN := math.IsNaN(nodata)
	for i := range mask {
		transparent := true
		for _, band := range bands {
			v := band[i]
			if isNaN {
				if !math.IsNaN(v) {
					transparent = false
					break
				}
			} else if v != nodata {
				transparent = false
				break
			}
		}
		if transparent {
			mask[i] = MaskTransparent
		}
	}
}

// OpaqueMask fills a strip with fully opaque mask values.
func OpaqueMask(n int) []byte {
	mask := make([]byte, n)
	for i := range mask {
		mask[i] = MaskOpaque
	}
	return mask
}
