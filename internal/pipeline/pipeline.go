// Package pipeline orchestrates one optimization run per input file:
// parameter resolution, reference synthesis, the streaming transparency
// and rounding pass into a tiled intermediate, overview build, the final
// layout rewrite, and post-write validation. Batch mode fans the per-file
// run out over a bounded worker pool.
package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pspoerri/cogopt/internal/cog"
	"github.com/pspoerri/cogopt/internal/crs"
	"github.com/pspoerri/cogopt/internal/engine"
	"github.com/pspoerri/cogopt/internal/params"
	"github.com/pspoerri/cogopt/internal/preview"
	"github.com/pspoerri/cogopt/internal/raster"
)

// Options configures an optimization run. The same Options value serves
// every file of a batch.
type Options struct {
	Product   params.Product
	Overrides params.Overrides

	Preview      bool // write a WebP thumbnail sidecar
	StatsSidecar bool // write a .stats.json sidecar

	Concurrency    int
	MemoryFraction float64
	Verbose        bool
	Version        string
}

// Result summarizes one successfully optimized file.
type Result struct {
	Input      string
	Output     string
	Validation *cog.Validation
	Bands      []BandStats
	Elapsed    time.Duration
}

// Process optimizes a single input file into output. The intermediate is
// written to a private temporary directory and removed on every path.
func Process(input, output string, opts *Options) (*Result, error) {
	start := time.Now()

	spec, err := params.Resolve(opts.Product, opts.Overrides)
	if err != nil {
		return nil, err
	}

	src, err := engine.Open(input)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	info := src.Info()

	if err := params.CheckBandCount(spec.Profile, len(info.SampleBands())); err != nil {
		return nil, err
	}
	crs.CheckVerticalMismatch(info.VerticalName, spec.Vertical, input)

	compound, err := crs.Synthesize(src.Horizontal(), spec.Vertical, spec.Profile.RequiresVertical)
	if err != nil {
		return nil, err
	}

	if info.HasMask {
		log.Printf("Warning: %s: the existing mask band is not propagated; transparency is rebuilt from alpha and no-data", input)
	}
	tplan, err := raster.PlanTransparency(info, spec)
	if err != nil {
		return nil, err
	}

	layout, err := cog.ComputeLayout(uint32(info.Width), uint32(info.Height), spec.TileSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(output), ".cogopt-*")
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	intermediate := filepath.Join(tmpDir, "intermediate.tif")

	stats, err := writeIntermediate(intermediate, src, spec, compound, tplan, layout, opts)
	if err != nil {
		return nil, err
	}

	if err := cog.Assemble(output, intermediate); err != nil {
		return nil, err
	}

	validation, err := cog.Validate(output, spec.TileSize)
	if err != nil {
		os.Remove(output)
		return nil, err
	}

	if opts.StatsSidecar {
		if err := WriteStatsSidecar(output, stats); err != nil {
			return nil, err
		}
	}
	if opts.Preview {
		if err := preview.Write(output, output+".webp", 0); err != nil {
			return nil, err
		}
	}

	if opts.Verbose {
		log.Printf("%s: %d levels, %d bytes, %s", output,
			len(validation.Levels), validation.FileSize, time.Since(start).Truncate(time.Millisecond))
	}

	return &Result{
		Input:      input,
		Output:     output,
		Validation: validation,
		Bands:      stats,
		Elapsed:    time.Since(start),
	}, nil
}

// writeIntermediate runs the streaming pass: one strip at a time, all
// bands of the strip together so the transparency mask can consult every
// band, with rounding and statistics folded into the same pass.
func writeIntermediate(path string, src *engine.Source, spec *params.Spec, compound *crs.Compound,
	tplan *raster.TransparencyPlan, layout *cog.Layout, opts *Options) ([]BandStats, error) {

	info := src.Info()

	inter, err := engine.CreateIntermediate(path, info.Width, info.Height,
		len(tplan.SampleBands), info.SampleType, spec)
	if err != nil {
		return nil, err
	}
	defer inter.Close()

	if err := inter.SetGeoTransform(info.GeoTransform); err != nil {
		return nil, err
	}
	if err := inter.SetReference(compound); err != nil {
		return nil, err
	}
	if err := inter.SetRasterType(spec.RasterType); err != nil {
		return nil, err
	}
	if err := inter.SetSoftware("cogopt " + opts.Version); err != nil {
		return nil, err
	}
	if tplan.NeedsMask() {
		if err := inter.CreateMask(); err != nil {
			return nil, err
		}
	}

	nodata, declareNoData, remap := resolveNoData(info, spec, tplan)
	if declareNoData {
		if err := inter.SetNoData(*nodata); err != nil {
			return nil, err
		}
	}

	fraction := opts.MemoryFraction
	if fraction <= 0 {
		fraction = raster.DefaultMemoryFraction
	}
	budget := raster.ComputeStripBudget(fraction, opts.Verbose)
	perBand := len(tplan.SampleBands)
	if tplan.DropAlpha {
		perBand++
	}
	plan, err := raster.PlanBlocks(info.Width, info.Height, info.SampleType.Size()*perBand, budget)
	if err != nil {
		return nil, err
	}

	stats := make([]BandStats, len(tplan.SampleBands))
	accs := make([]*raster.Stats, len(tplan.SampleBands))
	for i := range accs {
		accs[i] = raster.NewStats()
	}

	bufs := make([][]float64, len(tplan.SampleBands))
	for i := range bufs {
		bufs[i] = make([]float64, plan.BlockHeight*plan.Width)
	}
	var alphaBuf []float64
	if tplan.DropAlpha {
		alphaBuf = make([]float64, plan.BlockHeight*plan.Width)
	}
	var maskBuf []byte

	for s := 0; s < plan.Strips(); s++ {
		y0, h := plan.Strip(s)
		n := h * plan.Width

		strips := make([][]float64, len(tplan.SampleBands))
		for i, band := range tplan.SampleBands {
			strips[i] = bufs[i][:n]
			if err := src.ReadStrip(band, y0, h, strips[i]); err != nil {
				return nil, err
			}
		}

		// The mask is derived from the samples as read, before any
		// remapping touches the no-data marker.
		if tplan.NeedsMask() {
			if tplan.DropAlpha {
				alpha := alphaBuf[:n]
				if err := src.ReadStrip(tplan.AlphaBand, y0, h, alpha); err != nil {
					return nil, err
				}
				maskBuf = raster.MaskFromAlpha(alpha, maskBuf)
			} else {
				maskBuf = raster.OpaqueMask(n)
			}
			if tplan.FoldNoData {
				raster.FoldNoData(maskBuf[:n], strips, tplan.NoData)
			}
			if err := inter.WriteMaskStrip(y0, h, maskBuf[:n]); err != nil {
				return nil, err
			}
		}

		for i := range strips {
			if remap != nil {
				raster.RemapStrip(strips[i], remap.from, remap.to)
			}
			if spec.Decimals != nil && info.SampleType.IsFloat() {
				if err := raster.RoundStrip(strips[i], info.SampleType, *spec.Decimals, tplan.SampleBands[i], s); err != nil {
					return nil, err
				}
			}
			accs[i].AddStrip(strips[i], nodata)
			if err := inter.WriteStrip(i+1, y0, h, strips[i]); err != nil {
				return nil, err
			}
		}
	}

	for i, acc := range accs {
		stats[i] = BandStats{
			Band:   i + 1,
			Min:    acc.Min,
			Max:    acc.Max,
			Mean:   acc.Mean(),
			StdDev: acc.StdDev(),
			Count:  acc.Count,
		}
	}

	if err := inter.BuildOverviews(layout.Factors(), spec.Profile.OverviewResampling); err != nil {
		return nil, err
	}
	return stats, inter.Close()
}

type remapPlan struct {
	from, to float64
}

// resolveNoData picks the effective no-data value and decides whether the
// intermediate declares it. A marker the sample type cannot represent is
// remapped to NaN on float rasters (the returned remap rewrites the
// samples) and dropped with a warning otherwise. A user override merely
// re-declares which value marks no-data; it never rewrites samples.
// Products that mask their no-data away do not re-declare it.
func resolveNoData(info *raster.Info, spec *params.Spec, tplan *raster.TransparencyPlan) (*float64, bool, *remapPlan) {
	nodata := info.NoData
	if spec.NoData != nil {
		nodata = spec.NoData
	}
	if nodata == nil {
		return nil, false, nil
	}

	var remap *remapPlan
	if !raster.ValidNoData(*nodata, info.SampleType) {
		safe, ok := raster.SafeNoData(info.SampleType)
		if !ok {
			log.Printf("Warning: %s: no-data value %g is not representable as %s; dropping the declaration",
				info.Path, *nodata, info.SampleType)
			return nil, false, nil
		}
		log.Printf("%s: remapping out-of-range no-data %g to NaN", info.Path, *nodata)
		remap = &remapPlan{from: *nodata, to: safe}
		nodata = &safe
	}

	declare := !(tplan.FoldNoData && !spec.Profile.NoDataMeaningful)
	return nodata, declare, remap
}

