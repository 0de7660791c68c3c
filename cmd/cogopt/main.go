package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/pspoerri/cogopt/internal/params"
	"github.com/pspoerri/cogopt/internal/pipeline"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		product     string
		algorithm   string
		quality     int
		predictor   int
		level       int
		maxError    float64
		decimals    int
		tileSize    int
		vertical    string
		noData      float64
		maskAlpha   bool
		maskNodata  bool
		rasterType  string
		withPreview bool
		withStats   bool
		concurrency int
		memFraction float64
		verbose     bool
		showVersion bool
		cpuProfile  string
		memProfile  string
	)

	flag.StringVar(&product, "product", "", "Product type: dem, image, error, scientific, thematic (required)")
	flag.StringVar(&algorithm, "algorithm", "", "Compression: JPEG, JXL, LZW, DEFLATE, ZSTD, LERC, NONE (default: per product)")
	flag.IntVar(&quality, "quality", -1, "JPEG/JXL quality 1-100 (default 90)")
	flag.IntVar(&predictor, "predictor", -1, "Predictor 1-3 for LZW/DEFLATE/ZSTD (default: per product)")
	flag.IntVar(&level, "level", -1, "DEFLATE/ZSTD compression level (defaults 6/9)")
	flag.Float64Var(&maxError, "max-error", -1, "LERC maximum per-pixel error (default: per product)")
	flag.IntVar(&decimals, "decimals", -1, "Decimal places kept by the streaming rounder (default: per product)")
	flag.IntVar(&tileSize, "tile-size", params.DefaultTileSize, "Output tile size in pixels")
	flag.StringVar(&vertical, "vertical", "", "Vertical reference: datum name, EPSG code or WKT (required for dem)")
	flag.Float64Var(&noData, "nodata", fnUnset, "Override the input's no-data value")
	flag.BoolVar(&maskAlpha, "mask-alpha", true, "Convert the alpha band to an internal mask")
	flag.BoolVar(&maskNodata, "mask-nodata", false, "Also mask no-data pixels (default true for image)")
	flag.StringVar(&rasterType, "raster-type", "", "Pixel interpretation: Area or Point (default: per product)")
	flag.BoolVar(&withPreview, "preview", false, "Write a WebP thumbnail sidecar")
	flag.BoolVar(&withStats, "stats", false, "Write a .stats.json sidecar with per-band statistics")
	flag.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Number of files processed in parallel")
	flag.Float64Var(&memFraction, "mem-fraction", 0, "Fraction of RAM for strip buffers (0 = auto)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	flag.StringVar(&memProfile, "memprofile", "", "Write memory profile to file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cogopt -product <type> [flags] <input-file-or-dir> <output-dir>\n\n")
		fmt.Fprintf(os.Stderr, "Optimize GeoTIFF files into validated cloud-optimized GeoTIFFs with\n")
		fmt.Fprintf(os.Stderr, "data-aware compression parameters.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("cogopt %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// CPU profiling.
	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatalf("Creating CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Starting CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	// Memory profile (written at exit).
	if memProfile != "" {
		defer func() {
			f, err := os.Create(memProfile)
			if err != nil {
				log.Fatalf("Creating memory profile: %v", err)
			}
			defer f.Close()
			runtime.GC() // get up-to-date statistics
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.Fatalf("Writing memory profile: %v", err)
			}
		}()
	}

	args := flag.Args()
	if product == "" || len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath, outDir := args[0], args[1]

	opts := &pipeline.Options{
		Product:        params.Product(product),
		Overrides:      overrides(algorithm, quality, predictor, level, maxError, decimals, tileSize, vertical, noData, maskAlpha, maskNodata, rasterType),
		Preview:        withPreview,
		StatsSidecar:   withStats,
		Concurrency:    concurrency,
		MemoryFraction: memFraction,
		Verbose:        verbose,
		Version:        version,
	}

	// Resolve once up front so parameter contradictions surface before any
	// file is touched.
	spec, err := params.Resolve(opts.Product, opts.Overrides)
	if err != nil {
		log.Fatalf("Parameters: %v", err)
	}

	inputs, err := pipeline.CollectInputs(inputPath)
	if err != nil {
		log.Fatalf("Collecting input files: %v", err)
	}

	fmt.Printf("cogopt %s (commit %s, built %s)\n", version, commit, buildDate)
	fmt.Printf("  %-14s %s\n", "Product:", spec.Product)
	fmt.Printf("  %-14s %s\n", "Compression:", describeCompression(spec))
	fmt.Printf("  %-14s %dpx\n", "Tile size:", spec.TileSize)
	if spec.Vertical != "" {
		fmt.Printf("  %-14s %s\n", "Vertical:", spec.Vertical)
	}
	fmt.Printf("  %-14s %d\n", "Concurrency:", concurrency)
	fmt.Printf("  %-14s %d file(s)\n", "Input:", len(inputs))
	fmt.Printf("  %-14s %s\n", "Output:", outDir)

	start := time.Now()
	report, err := pipeline.Run(inputs, outDir, opts)
	if err != nil {
		log.Fatalf("Batch: %v", err)
	}

	failures := report.Failures()
	for _, fr := range failures {
		log.Printf("FAILED %s: %v", fr.Input, fr.Err)
	}

	ok := len(report.Results) - len(failures)
	fmt.Printf("Done: %d/%d file(s) optimized in %v\n",
		ok, len(report.Results), time.Since(start).Round(time.Millisecond))
	if len(failures) > 0 {
		os.Exit(1)
	}
}

// fnUnset is the sentinel for the -nodata flag: NaN cannot be supplied on
// the command line, so it safely marks "not set".
var fnUnset = math.NaN()

// overrides assembles the pointer-field override set from flag values,
// leaving unsupplied knobs nil so resolution falls back to the product
// profile. Boolean mask flags count as supplied only when present on the
// command line.
func overrides(algorithm string, quality, predictor, level int, maxError float64, decimals, tileSize int,
	vertical string, noData float64, maskAlpha, maskNodata bool, rasterType string) params.Overrides {

	ov := params.Overrides{
		Algorithm:  params.Algorithm(algorithm),
		TileSize:   tileSize,
		Vertical:   vertical,
		RasterType: rasterType,
	}
	if quality >= 0 {
		ov.Quality = &quality
	}
	if predictor >= 0 {
		ov.Predictor = &predictor
	}
	if level >= 0 {
		ov.Level = &level
	}
	if maxError >= 0 {
		ov.MaxError = &maxError
	}
	if decimals >= 0 {
		ov.Decimals = &decimals
	}
	if !math.IsNaN(noData) {
		ov.NoData = &noData
	}
	flagSet := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { flagSet[f.Name] = true })
	if flagSet["mask-alpha"] {
		ov.MaskAlpha = &maskAlpha
	}
	if flagSet["mask-nodata"] {
		ov.MaskNodata = &maskNodata
	}
	return ov
}

func describeCompression(spec *params.Spec) string {
	s := string(spec.Algorithm)
	switch {
	case spec.Quality != nil:
		s += fmt.Sprintf(" (quality %d)", *spec.Quality)
	case spec.MaxError != nil:
		s += fmt.Sprintf(" (max error %g)", *spec.MaxError)
	case spec.Level != nil:
		s += fmt.Sprintf(" (level %d)", *spec.Level)
	}
	if spec.Decimals != nil {
		s += fmt.Sprintf(", %d decimals", *spec.Decimals)
	}
	return s
}
