package params

import "fmt"

// ValidationError reports contradictory or missing parameters. It is
// user-correctable and raised before any raster I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// BandCountError reports an input whose band count the product type
// forbids.
type BandCountError struct {
	Product Product
	Bands   int
}

func (e *BandCountError) Error() string {
	return fmt.Sprintf("multi-band input (%d bands) is not supported for %q products; use image or scientific instead",
		e.Bands, e.Product)
}
