// Command cogcheck validates that a GeoTIFF is cloud-optimized and prints
// its pyramid structure. Exit status 1 means the file failed validation.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pspoerri/cogopt/internal/cog"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: cogcheck <file.tif>...\n")
		os.Exit(1)
	}

	failed := false
	for _, path := range os.Args[1:] {
		v, err := cog.Validate(path, 0)
		if err != nil {
			failed = true
			var lerr *cog.LayoutError
			if errors.As(err, &lerr) {
				fmt.Fprintf(os.Stderr, "INVALID %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "ERROR %s: %v\n", path, err)
			}
			continue
		}
		report(v)
	}
	if failed {
		os.Exit(1)
	}
}

func report(v *cog.Validation) {
	fmt.Printf("File: %s (%d bytes)\n", v.Path, v.FileSize)
	fmt.Printf("Tile size: %d, compression code: %d\n", v.TileSize, v.Compression)
	if v.GeoKeys != nil {
		if code := v.GeoKeys.EPSG(); code != 0 {
			fmt.Printf("Horizontal CRS: EPSG:%d\n", code)
		} else {
			fmt.Printf("Horizontal CRS: user-defined (%s)\n", v.GeoKeys.Citation)
		}
		if v.GeoKeys.HasVertical() {
			fmt.Printf("Vertical CRS: %d (%s)\n", v.GeoKeys.VerticalCSType, v.GeoKeys.VerticalCitation)
		}
	}
	if v.NoData != "" {
		fmt.Printf("No-data: %s\n", v.NoData)
	}
	if v.MaskLevels > 0 {
		fmt.Printf("Mask levels: %d\n", v.MaskLevels)
	}
	for i, lv := range v.Levels {
		label := "full resolution"
		if i > 0 {
			label = fmt.Sprintf("overview %d", i)
		}
		fmt.Printf("  Level %d (%s): %dx%d, %d tiles (%d empty), %d data bytes\n",
			i, label, lv.Width, lv.Height, lv.Tiles, lv.EmptyTiles, lv.DataBytes)
	}
	fmt.Printf("OK: cloud-optimized layout verified\n")
}
