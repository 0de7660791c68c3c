package raster

import (
	"errors"
	"math"
	"testing"

	"github.com/pspoerri/cogopt/internal/params"
)

func rgbaInfo() *Info {
	return &Info{
		Path:       "in.tif",
		Width:      512,
		Height:     512,
		Bands:      4,
		SampleType: Byte,
		HasAlpha:   true,
		AlphaBand:  4,
	}
}

func TestPlanTransparencyDropsAlpha(t *testing.T) {
	spec, err := params.Resolve(params.Image, params.Overrides{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	plan, err := PlanTransparency(rgbaInfo(), spec)
	if err != nil {
		t.Fatalf("PlanTransparency: %v", err)
	}
	if !plan.DropAlpha || plan.AlphaBand != 4 {
		t.Errorf("plan = %+v, want alpha band 4 dropped", plan)
	}
	if len(plan.SampleBands) != 3 {
		t.Errorf("sample bands = %v, want 3 bands", plan.SampleBands)
	}
	if !plan.NeedsMask() {
		t.Error("plan does not introduce a mask")
	}
}

func TestPlanTransparencyRejectsLossyWithPreservedAlpha(t *testing.T) {
	off := false
	spec, err := params.Resolve(params.Image, params.Overrides{MaskAlpha: &off})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_, err = PlanTransparency(rgbaInfo(), spec)
	var aerr *AlphaMaskError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want *AlphaMaskError", err)
	}
	if aerr.Algorithm != params.JPEG {
		t.Errorf("algorithm = %s, want JPEG", aerr.Algorithm)
	}
}

func TestPlanTransparencyPreservedAlphaWithLosslessCodec(t *testing.T) {
	off := false
	spec, err := params.Resolve(params.Image, params.Overrides{Algorithm: params.Deflate, MaskAlpha: &off})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	plan, err := PlanTransparency(rgbaInfo(), spec)
	if err != nil {
		t.Fatalf("PlanTransparency: %v", err)
	}
	if plan.DropAlpha {
		t.Error("alpha dropped despite mask-alpha=false")
	}
	if len(plan.SampleBands) != 4 {
		t.Errorf("sample bands = %v, want all 4 kept", plan.SampleBands)
	}
}

func TestPlanTransparencyFoldsNoData(t *testing.T) {
	nodata := -9999.0
	info := &Info{Path: "dem.tif", Width: 8, Height: 8, Bands: 1, SampleType: Float32, NoData: &nodata}
	on := true
	spec, err := params.Resolve(params.DEM, params.Overrides{Vertical: "EGM96", MaskNodata: &on})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	plan, err := PlanTransparency(info, spec)
	if err != nil {
		t.Fatalf("PlanTransparency: %v", err)
	}
	if !plan.FoldNoData || plan.NoData != nodata {
		t.Errorf("plan = %+v, want no-data %g folded", plan, nodata)
	}
}

func TestMaskFromAlpha(t *testing.T) {
	alpha := []float64{0, 100, 229, 230, 255}
	mask := MaskFromAlpha(alpha, nil)
	want := []byte{0, 0, 0, 255, 255}
	for i := range want {
		if mask[i] != want[i] {
			t.Errorf("mask[%d] = %d, want %d (alpha %g)", i, mask[i], want[i], alpha[i])
		}
	}
}

func TestFoldNoData(t *testing.T) {
	mask := OpaqueMask(4)
	bands := [][]float64{
		{-9999, 1, -9999, -9999},
		{-9999, -9999, 2, -9999},
	}
	FoldNoData(mask, bands, -9999)
	want := []byte{0, 255, 255, 0} // transparent only where every band is no-data
	for i := range want {
		if mask[i] != want[i] {
			t.Errorf("mask[%d] = %d, want %d", i, mask[i], want[i])
		}
	}
}

func TestFoldNoDataNaN(t *testing.T) {
	mask := OpaqueMask(3)
	bands := [][]float64{{math.NaN(), 1, math.NaN()}}
	FoldNoData(mask, bands, math.NaN())
	if mask[0] != 0 || mask[1] != 255 || mask[2] != 0 {
		t.Errorf("NaN fold = %v, want [0 255 0]", mask)
	}
}

func TestValidNoData(t *testing.T) {
	tests := []struct {
		v    float64
		t    SampleType
		want bool
	}{
		{255, Byte, true},
		{256, Byte, false},
		{-1, UInt16, false},
		{math.Inf(-1), Float32, false},
		{math.NaN(), Float32, true},
		{-9999, Float64, true},
		{math.MaxFloat64, Float32, false},
		{70000, Int16, false},
	}
	for _, tt := range tests {
		if got := ValidNoData(tt.v, tt.t); got != tt.want {
			t.Errorf("ValidNoData(%g, %s) = %v, want %v", tt.v, tt.t, got, tt.want)
		}
	}
}
