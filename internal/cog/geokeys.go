package cog

import "fmt"

// GeoTIFF key IDs, from the GeoTIFF 1.1 specification.
const (
	keyModelType          = 1024
	keyRasterType         = 1025
	keyCitation           = 1026
	keyGeographicType     = 2048
	keyGeogCitation       = 2049
	keyProjectedCSType    = 3072
	keyProjCitation       = 3073
	keyVerticalCSType     = 4096
	keyVerticalCitation   = 4097
	keyVerticalDatum      = 4098
	keyVerticalUnits      = 4099
)

// GeoKey model type values.
const (
	ModelTypeProjected  = 1
	ModelTypeGeographic = 2

	// KeyUserDefined marks a key whose value lives outside the EPSG
	// registry, typically with a citation carrying the definition.
	KeyUserDefined = 32767

	// RasterPixelIsArea / RasterPixelIsPoint are the two pixel
	// interpretations GeoTIFF defines.
	RasterPixelIsArea  = 1
	RasterPixelIsPoint = 2
)

// GeoKeys holds the georeferencing keys parsed from a GeoTIFF key
// directory. Zero values mean the key is absent.
type GeoKeys struct {
	ModelType        uint16
	RasterType       uint16
	GeographicType   uint16
	ProjectedCSType  uint16
	VerticalCSType   uint16
	VerticalDatum    uint16
	VerticalUnits    uint16
	Citation         string
	VerticalCitation string
}

// EPSG returns the horizontal EPSG code the keys declare, or 0 when the
// CRS is user-defined or absent.
func (k *GeoKeys) EPSG() int {
	switch k.ModelType {
	case ModelTypeProjected:
		if k.ProjectedCSType != KeyUserDefined {
			return int(k.ProjectedCSType)
		}
	case ModelTypeGeographic:
		if k.GeographicType != KeyUserDefined {
			return int(k.GeographicType)
		}
	}
	return 0
}

// HasVertical reports whether a vertical CRS component is declared.
func (k *GeoKeys) HasVertical() bool {
	return k.VerticalCSType != 0 || k.VerticalCitation != ""
}

// ParseGeoKeys decodes a GeoKeyDirectory tag together with its ASCII
// parameter block. The directory is groups of four shorts: key ID,
// location tag, count, and value or offset.
func ParseGeoKeys(dir []uint16, ascii string) (*GeoKeys, error) {
	if len(dir) < 4 {
		return nil, fmt.Errorf("geokey directory too short: %d entries", len(dir))
	}
	if dir[0] != 1 {
		return nil, fmt.Errorf("unsupported geokey directory version %d", dir[0])
	}
	numKeys := int(dir[3])
	if len(dir) < 4+numKeys*4 {
		return nil, fmt.Errorf("geokey directory truncated: %d keys declared, %d entries present", numKeys, len(dir))
	}

	keys := &GeoKeys{}
	for i := 0; i < numKeys; i++ {
		id := dir[4+i*4]
		loc := dir[4+i*4+1]
		count := int(dir[4+i*4+2])
		value := dir[4+i*4+3]

		switch id {
		case keyModelType:
			keys.ModelType = value
		case keyRasterType:
			keys.RasterType = value
		case keyGeographicType:
			keys.GeographicType = value
		case keyProjectedCSType:
			keys.ProjectedCSType = value
		case keyVerticalCSType:
			keys.VerticalCSType = value
		case keyVerticalDatum:
			keys.VerticalDatum = value
		case keyVerticalUnits:
			keys.VerticalUnits = value
		case keyCitation, keyGeogCitation, keyProjCitation:
			if loc == tagGeoAsciiParams {
				keys.Citation = geoASCII(ascii, int(value), count)
			}
		case keyVerticalCitation:
			if loc == tagGeoAsciiParams {
				keys.VerticalCitation = geoASCII(ascii, int(value), count)
			}
		}
	}
	return keys, nil
}

// geoASCII slices one value out of the GeoAsciiParams block. Values are
// pipe-terminated per the GeoTIFF convention.
func geoASCII(ascii string, offset, count int) string {
	if offset >= len(ascii) {
		return ""
	}
	end := offset + count
	if end > len(ascii) {
		end = len(ascii)
	}
	s := ascii[offset:end]
	for len(s) > 0 && (s[len(s)-1] == '|' || s[len(s)-1] == 0) {
		s = s[:len(s)-1]
	}
	return s
}
