package engine

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/pspoerri/cogopt/internal/params"
)

// creationOptions maps a resolved parameter set to GeoTIFF creation
// options for the tiled intermediate.
func creationOptions(spec *params.Spec) []string {
	opts := []string{
		"TILED=YES",
		fmt.Sprintf("BLOCKXSIZE=%d", spec.TileSize),
		fmt.Sprintf("BLOCKYSIZE=%d", spec.TileSize),
		"BIGTIFF=IF_SAFER",
	}

	switch spec.Algorithm {
	case params.JPEG:
		opts = append(opts, "COMPRESS=JPEG",
			fmt.Sprintf("JPEG_QUALITY=%d", *spec.Quality))
	case params.JXL:
		opts = append(opts, "COMPRESS=JXL")
		if *spec.Quality >= 100 {
			opts = append(opts, "JXL_LOSSLESS=YES")
		} else {
			// Quality maps to the JXL Butteraugli distance on a rule-of-ten
			// scale: 90 is distance 1.0, 100 is lossless.
			opts = append(opts, "JXL_LOSSLESS=NO",
				fmt.Sprintf("JXL_DISTANCE=%g", float64(100-*spec.Quality)/10))
		}
	case params.LZW:
		opts = append(opts, "COMPRESS=LZW")
	case params.Deflate:
		opts = append(opts, "COMPRESS=DEFLATE",
			fmt.Sprintf("ZLEVEL=%d", *spec.Level))
	case params.ZSTD:
		opts = append(opts, "COMPRESS=ZSTD",
			fmt.Sprintf("ZSTD_LEVEL=%d", *spec.Level))
	case params.LERC:
		opts = append(opts, "COMPRESS=LERC",
			fmt.Sprintf("MAX_Z_ERROR=%g", *spec.MaxError))
	case params.None:
		opts = append(opts, "COMPRESS=NONE")
	}

	if spec.Predictor != nil && *spec.Predictor > 1 {
		opts = append(opts, fmt.Sprintf("PREDICTOR=%d", *spec.Predictor))
	}
	return opts
}

// overviewConfig maps the parameter set to the configuration options that
// control internal overview compression during the overview build.
func overviewConfig(spec *params.Spec) []string {
	var cfg []string
	switch spec.Algorithm {
	case params.JPEG:
		cfg = append(cfg, "COMPRESS_OVERVIEW=JPEG",
			fmt.Sprintf("JPEG_QUALITY_OVERVIEW=%d", *spec.Quality))
	case params.JXL:
		cfg = append(cfg, "COMPRESS_OVERVIEW=JXL")
	case params.LZW:
		cfg = append(cfg, "COMPRESS_OVERVIEW=LZW")
	case params.Deflate:
		cfg = append(cfg, "COMPRESS_OVERVIEW=DEFLATE",
			fmt.Sprintf("ZLEVEL_OVERVIEW=%d", *spec.Level))
	case params.ZSTD:
		cfg = append(cfg, "COMPRESS_OVERVIEW=ZSTD",
			fmt.Sprintf("ZSTD_LEVEL_OVERVIEW=%d", *spec.Level))
	case params.LERC:
		cfg = append(cfg, "COMPRESS_OVERVIEW=LERC",
			fmt.Sprintf("MAX_Z_ERROR_OVERVIEW=%g", *spec.MaxError))
	case params.None:
		cfg = append(cfg, "COMPRESS_OVERVIEW=NONE")
	}
	if spec.Predictor != nil && *spec.Predictor > 1 {
		cfg = append(cfg, fmt.Sprintf("PREDICTOR_OVERVIEW=%d", *spec.Predictor))
	}
	return cfg
}

func resampling(r params.Resampling) godal.ResamplingAlg {
	if r == params.ResampleNearest {
		return godal.Nearest
	}
	return godal.Bilinear
}
