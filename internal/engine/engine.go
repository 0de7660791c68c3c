// Package engine wraps the GDAL-backed raster library behind the strip
// contract the pipeline stages are written against. It owns every call
// into the raster collaborator: opening and describing inputs, building
// the tiled intermediate, strip I/O, mask bands, overviews, and the
// reference-system and metadata writes.
package engine

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/pspoerri/cogopt/internal/crs"
	"github.com/pspoerri/cogopt/internal/raster"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Source is an opened input raster. It implements raster.StripReader.
type Source struct {
	ds   *godal.Dataset
	info raster.Info
}

// Open opens an input file read-only and assembles its descriptor.
func Open(path string) (*Source, error) {
	register()

	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	src := &Source{ds: ds}
	if err := src.describe(path); err != nil {
		ds.Close()
		return nil, err
	}
	return src, nil
}

func (s *Source) describe(path string) error {
	st := s.ds.Structure()

	s.info = raster.Info{
		Path:     path,
		Width:    st.SizeX,
		Height:   st.SizeY,
		Bands:    st.NBands,
		Metadata: map[string]string{},
	}

	bands := s.ds.Bands()
	if len(bands) == 0 {
		return fmt.Errorf("%s: no raster bands", path)
	}

	dt, err := sampleType(bands[0].Structure().DataType)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.info.SampleType = dt

	for i, b := range bands {
		if b.ColorInterp() == godal.CIAlpha {
			s.info.HasAlpha = true
			s.info.AlphaBand = i + 1
		}
	}
	if nd, ok := bands[0].NoData(); ok {
		s.info.NoData = &nd
	}
	// GMF_PER_DATASET: the input carries a mask band of its own.
	if bands[0].MaskFlags()&0x02 != 0 {
		s.info.HasMask = true
	}

	if gt, err := s.ds.GeoTransform(); err == nil {
		s.info.GeoTransform = gt
	}

	if sr := s.ds.SpatialRef(); sr != nil {
		if wkt, err := sr.WKT(); err == nil && wkt != "" {
			h := crs.HorizontalFromWKT(wkt)
			s.info.CRSWKT = wkt
			s.info.CRSName = h.Name
			s.info.CRSEPSG = h.EPSG
			s.info.VerticalName = crs.VerticalNameFromWKT(wkt)
		}
	}

	return nil
}

// Info returns the input descriptor.
func (s *Source) Info() *raster.Info { return &s.info }

// Horizontal returns the horizontal reference as read from the input.
func (s *Source) Horizontal() crs.HorizontalRef {
	return crs.HorizontalRef{Name: s.info.CRSName, EPSG: s.info.CRSEPSG, WKT: s.info.CRSWKT}
}

// ReadStrip reads one horizontal strip of a band into dst, converting
// samples to float64 regardless of the stored type.
func (s *Source) ReadStrip(band, y0, height int, dst []float64) error {
	bands := s.ds.Bands()
	if band < 1 || band > len(bands) {
		return fmt.Errorf("%s: band %d out of range", s.info.Path, band)
	}
	buf := dst[:height*s.info.Width]
	if err := bands[band-1].Read(0, y0, buf, s.info.Width, height); err != nil {
		return fmt.Errorf("%s: reading band %d rows %d-%d: %w", s.info.Path, band, y0, y0+height-1, err)
	}
	return nil
}

// Close releases the dataset.
func (s *Source) Close() error {
	if s.ds == nil {
		return nil
	}
	err := s.ds.Close()
	s.ds = nil
	return err
}

func sampleType(dt godal.DataType) (raster.SampleType, error) {
	switch dt {
	case godal.Byte:
		return raster.Byte, nil
	case godal.UInt16:
		return raster.UInt16, nil
	case godal.Int16:
		return raster.Int16, nil
	case godal.UInt32:
		return raster.UInt32, nil
	case godal.Int32:
		return raster.Int32, nil
	case godal.Float32:
		return raster.Float32, nil
	case godal.Float64:
		return raster.Float64, nil
	default:
		return "", fmt.Errorf("unsupported sample type %d", dt)
	}
}

func dataType(t raster.SampleType) godal.DataType {
	switch t {
	case raster.Byte:
		return godal.Byte
	case raster.UInt16:
		return godal.UInt16
	case raster.Int16:
		return godal.Int16
	case raster.UInt32:
		return godal.UInt32
	case raster.Int32:
		return godal.Int32
	case raster.Float32:
		return godal.Float32
	default:
		return godal.Float64
	}
}
