package cog

import (
	"fmt"
	"os"

	"github.com/airbusgeo/cogger"
)

// Assemble rewrites an intermediate tiled GeoTIFF into cloud-optimized
// layout: directories up front, tile data ordered for streaming reads.
// The intermediate must already carry its overviews and mask planes; only
// the byte layout changes.
func Assemble(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening intermediate %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if err := cogger.Rewrite(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("assembling %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	return nil
}
