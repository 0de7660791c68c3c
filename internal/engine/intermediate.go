package engine

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/pspoerri/cogopt/internal/crs"
	"github.com/pspoerri/cogopt/internal/params"
	"github.com/pspoerri/cogopt/internal/raster"
)

// Intermediate is the tiled GeoTIFF the pipeline writes before the final
// layout rewrite. It carries the resolved compression options, the mask
// band when one is planned, the overviews, and the reference-system and
// metadata tags. It implements raster.StripWriter.
type Intermediate struct {
	ds    *godal.Dataset
	path  string
	width int
	spec  *params.Spec
	mask  *godal.Band
}

// CreateIntermediate creates the tiled intermediate file with the
// compression encoding the resolved parameters call for.
func CreateIntermediate(path string, width, height, bands int, t raster.SampleType, spec *params.Spec) (*Intermediate, error) {
	register()

	opts := creationOptions(spec)
	ds, err := godal.Create(godal.GTiff, path, bands, dataType(t), width, height,
		godal.CreationOption(opts...))
	if err != nil {
		return nil, fmt.Errorf("creating intermediate %s: %w", path, err)
	}

	return &Intermediate{ds: ds, path: path, width: width, spec: spec}, nil
}

// WriteStrip writes one horizontal strip of samples to a band. The
// library converts from float64 to the stored sample type.
func (m *Intermediate) WriteStrip(band, y0, height int, src []float64) error {
	bands := m.ds.Bands()
	if band < 1 || band > len(bands) {
		return fmt.Errorf("%s: band %d out of range", m.path, band)
	}
	buf := src[:height*m.width]
	if err := bands[band-1].Write(0, y0, buf, m.width, height); err != nil {
		return fmt.Errorf("%s: writing band %d rows %d-%d: %w", m.path, band, y0, y0+height-1, err)
	}
	return nil
}

// CreateMask adds the internal single-bit transparency mask shared by all
// bands. It must be called before any mask strip is written.
func (m *Intermediate) CreateMask() error {
	// GMF_PER_DATASET: one mask plane covering every band.
	band, err := m.ds.CreateMaskBand(0x02, godal.ConfigOption("GDAL_TIFF_INTERNAL_MASK=YES"))
	if err != nil {
		return fmt.Errorf("%s: creating mask band: %w", m.path, err)
	}
	m.mask = &band
	return nil
}

// WriteMaskStrip writes one strip of 8-bit mask samples (0 or 255).
func (m *Intermediate) WriteMaskStrip(y0, height int, mask []byte) error {
	if m.mask == nil {
		return fmt.Errorf("%s: mask band not created", m.path)
	}
	buf := mask[:height*m.width]
	if err := m.mask.Write(0, y0, buf, m.width, height); err != nil {
		return fmt.Errorf("%s: writing mask rows %d-%d: %w", m.path, y0, y0+height-1, err)
	}
	return nil
}

// SetNoData declares the no-data value on every band.
func (m *Intermediate) SetNoData(v float64) error {
	for i, b := range m.ds.Bands() {
		if err := b.SetNoData(v); err != nil {
			return fmt.Errorf("%s: setting no-data on band %d: %w", m.path, i+1, err)
		}
	}
	return nil
}

// SetGeoTransform copies the affine georeferencing from the input.
func (m *Intermediate) SetGeoTransform(gt [6]float64) error {
	if err := m.ds.SetGeoTransform(gt); err != nil {
		return fmt.Errorf("%s: setting geotransform: %w", m.path, err)
	}
	return nil
}

// SetReference writes the compound reference system. Registered systems go
// through the library; an unregistered vertical datum additionally writes
// the full compound definition into the side-channel metadata item, since
// the GeoTIFF key directory cannot represent it.
func (m *Intermediate) SetReference(c *crs.Compound) error {
	wkt := c.WKT
	if wkt == "" {
		wkt = c.Horizontal.WKT
	}
	if wkt != "" {
		sr, err := godal.NewSpatialRefFromWKT(wkt)
		if err != nil {
			return fmt.Errorf("%s: parsing reference %q: %w", m.path, c.Name, err)
		}
		defer sr.Close()
		if err := m.ds.SetSpatialRef(sr); err != nil {
			return fmt.Errorf("%s: setting reference %q: %w", m.path, c.Name, err)
		}
	} else if c.Horizontal.EPSG != 0 {
		sr, err := godal.NewSpatialRefFromEPSG(c.Horizontal.EPSG)
		if err != nil {
			return fmt.Errorf("%s: resolving EPSG:%d: %w", m.path, c.Horizontal.EPSG, err)
		}
		defer sr.Close()
		if err := m.ds.SetSpatialRef(sr); err != nil {
			return fmt.Errorf("%s: setting reference EPSG:%d: %w", m.path, c.Horizontal.EPSG, err)
		}
	}

	if !c.Registered && c.WKT != "" {
		if err := m.SetMetadataItem("COMPOUND_CRS_WKT", c.WKT); err != nil {
			return err
		}
	}
	return nil
}

// SetMetadataItem writes one default-domain metadata item.
func (m *Intermediate) SetMetadataItem(key, value string) error {
	if err := m.ds.SetMetadata(key, value); err != nil {
		return fmt.Errorf("%s: setting metadata %s: %w", m.path, key, err)
	}
	return nil
}

// SetSoftware records the producing tool in the TIFF software tag.
func (m *Intermediate) SetSoftware(v string) error {
	return m.SetMetadataItem("TIFFTAG_SOFTWARE", v)
}

// SetRasterType records the pixel interpretation (Area or Point).
func (m *Intermediate) SetRasterType(v string) error {
	return m.SetMetadataItem("AREA_OR_POINT", v)
}

// BuildOverviews builds the internal overview chain with the planned
// decimation factors, compressed the same way as the full resolution.
func (m *Intermediate) BuildOverviews(factors []int, r params.Resampling) error {
	if len(factors) == 0 {
		return nil
	}
	opts := []godal.BuildOverviewsOption{
		godal.Levels(factors...),
		godal.Resampling(resampling(r)),
	}
	for _, cfg := range overviewConfig(m.spec) {
		opts = append(opts, godal.ConfigOption(cfg))
	}
	if err := m.ds.BuildOverviews(opts...); err != nil {
		return fmt.Errorf("%s: building overviews %v: %w", m.path, factors, err)
	}
	return nil
}

// Close flushes and closes the intermediate file.
func (m *Intermediate) Close() error {
	if m.ds == nil {
		return nil
	}
	err := m.ds.Close()
	m.ds = nil
	if err != nil {
		return fmt.Errorf("closing %s: %w", m.path, err)
	}
	return nil
}
