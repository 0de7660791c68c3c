package raster

import (
	"math"
	"testing"
)

func TestStatsBasic(t *testing.T) {
	s := NewStats()
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Add(v)
	}
	if s.Count != 8 {
		t.Errorf("count = %d, want 8", s.Count)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("min/max = %g/%g, want 2/9", s.Min, s.Max)
	}
	if got := s.Mean(); math.Abs(got-5) > 1e-12 {
		t.Errorf("mean = %g, want 5", got)
	}
	if got := s.StdDev(); math.Abs(got-2) > 1e-12 {
		t.Errorf("stddev = %g, want 2", got)
	}
}

func TestStatsSkipsNaNAndNoData(t *testing.T) {
	s := NewStats()
	nodata := -9999.0
	s.AddStrip([]float64{1, -9999, math.NaN(), 3}, &nodata)
	if s.Count != 2 {
		t.Errorf("count = %d, want 2", s.Count)
	}
	if got := s.Mean(); got != 2 {
		t.Errorf("mean = %g, want 2", got)
	}
}

func TestStatsNaNNoData(t *testing.T) {
	nan := math.NaN()
	s := NewStats()
	s.AddStrip([]float64{math.NaN(), 5}, &nan)
	if s.Count != 1 || s.Min != 5 || s.Max != 5 {
		t.Errorf("stats = %+v, want single sample 5", s)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := NewStats()
	if s.Mean() != 0 || s.StdDev() != 0 {
		t.Error("empty accumulator not zero-valued")
	}
}
