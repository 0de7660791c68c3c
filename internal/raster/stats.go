package raster

import "math"

// Stats accumulates per-band sample statistics over a streaming pass,
// using Welford's online update so a single pass over arbitrarily large
// rasters suffices. NaN samples and no-data samples are excluded.
type Stats struct {
	Count int64
	Min   float64
	Max   float64

	mean float64
	m2   float64
}

// NewStats returns an empty accumulator.
func NewStats() *Stats {
	return &Stats{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Add folds one sample into the accumulator.
func (s *Stats) Add(v float64) {
	if math.IsNaN(v) {
		return
	}
	s.Count++
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
	delta := v - s.mean
	s.mean += delta / float64(s.Count)
	s.m2 += delta * (v - s.mean)
}

// AddStrip folds one strip of samples, skipping the no-data value when
// one is declared.
func (s *Stats) AddStrip(samples []float64, nodata *float64) {
	if nodata == nil {
		for _, v := range samples {
			s.Add(v)
		}
		return
	}
	nd := *nodata
	ndNaN := math.IsNaN(nd)
	for _, v := range samples {
		if v == nd || (ndNaN && math.IsNaN(v)) {
			continue
		}
		s.Add(v)
	}
}

// Mean returns the running mean, 0 when no samples were counted.
func (s *Stats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.mean
}

// StdDev returns the population standard deviation.
func (s *Stats) StdDev() float64 {
	if s.Count == 0 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.Count))
}
