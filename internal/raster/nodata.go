package raster

import "math"

// ValidNoData reports whether a declared no-data value is representable
// for the sample type. Producer software sometimes records -inf or a value
// outside the integer range; such markers cannot survive the write path.
func ValidNoData(v float64, t SampleType) bool {
	if math.IsInf(v, 0) {
		return false
	}
	switch t {
	case Byte:
		return v >= 0 && v <= math.MaxUint8
	case UInt16:
		return v >= 0 && v <= math.MaxUint16
	case Int16:
		return v >= math.MinInt16 && v <= math.MaxInt16
	case UInt32:
		return v >= 0 && v <= math.MaxUint32
	case Int32:
		return v >= math.MinInt32 && v <= math.MaxInt32
	case Float32:
		return math.IsNaN(v) || math.Abs(v) <= math.MaxFloat32
	case Float64:
		return true
	}
	return false
}

// SafeNoData returns the replacement for an invalid no-data marker. Float
// rasters remap to NaN; integer rasters have no universally safe marker,
// so the caller must drop the declaration instead.
func SafeNoData(t SampleType) (float64, bool) {
	if t.IsFloat() {
		return math.NaN(), true
	}
	return 0, false
}

// RemapStrip rewrites every sample equal to from with to, in place. A NaN
// from matches NaN samples.
func RemapStrip(strip []float64, from, to float64) {
	if math.IsNaN(from) {
		for j, v := range strip {
			if math.IsNaN(v) {
				strip[j] = to
			}
		}
		return
	}
	for j, v := range strip {
		if v == from {
			strip[j] = to
		}
	}
}
