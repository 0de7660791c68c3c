package raster

import (
	"fmt"
	"math"
)

// OverflowError reports a sample whose rounded value falls outside the
// representable range of its type. The pixel is identified by its strip
// and in-strip offset rather than silently clamped.
type OverflowError struct {
	Band   int
	Strip  int
	Offset int // sample offset within the strip
	Value  float64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("rounding overflow in band %d, strip %d, offset %d: value %g exceeds the sample type range",
		e.Band, e.Strip, e.Offset, e.Value)
}

// RoundTo rounds x to d decimal places. NaN and infinities pass through
// unchanged; they mark no-data and must survive the transform bit-exact.
func RoundTo(x float64, d int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(d))
	return math.Round(x*p) / p
}

// RoundStrip rounds one strip of samples in place, checking every rounded
// value against the representable range of the sample type.
func RoundStrip(strip []float64, sampleType SampleType, decimals, band, stripIdx int) error {
	if !sampleType.IsFloat() {
		return fmt.Errorf("decimal rounding applies to floating-point samples, not %s", sampleType)
	}
	for j, v := range strip {
		rounded := RoundTo(v, decimals)
		if sampleType == Float32 && !math.IsInf(v, 0) && math.Abs(rounded) > math.MaxFloat32 {
			return &OverflowError{Band: band, Strip: stripIdx, Offset: j, Value: rounded}
		}
		strip[j] = rounded
	}
	return nil
}

// RoundStream applies decimal rounding to every floating-point sample,
// strip by strip per the block plan. Peak memory is bounded by one strip
// regardless of raster size, and the result is identical for any block
// height: rounding is a pure per-pixel operation with no cross-strip
// state.
func RoundStream(r StripReader, w StripWriter, bands []int, sampleType SampleType, decimals int, plan BlockPlan) error {
	if !sampleType.IsFloat() {
		return fmt.Errorf("decimal rounding applies to floating-point samples, not %s", sampleType)
	}

	buf := make([]float64, plan.BlockHeight*plan.Width)
	for _, band := range bands {
		for i := 0; i < plan.Strips(); i++ {
			y0, h := plan.Strip(i)
			strip := buf[:h*plan.Width]
			if err := r.ReadStrip(band, y0, h, strip); err != nil {
				return fmt.Errorf("reading band %d strip %d: %w", band, i, err)
			}
			if err := RoundStrip(strip, sampleType, decimals, band, i); err != nil {
				return err
			}
			if err := w.WriteStrip(band, y0, h, strip); err != nil {
				return fmt.Errorf("writing band %d strip %d: %w", band, i, err)
			}
		}
	}
	return nil
}
