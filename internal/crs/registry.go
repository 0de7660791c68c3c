package crs

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed verticals.yaml
var verticalsYAML []byte

//go:embed vendor_crs.yaml
var vendorYAML []byte

// verticalEntry is one row of the vertical datum registry. Either EPSG or
// WKT is set: WKT carries the full definition for datums that have no
// registered code.
type verticalEntry struct {
	Name   string `yaml:"name"`
	Abbrev string `yaml:"abbrev"`
	EPSG   int    `yaml:"epsg"`
	WKT    string `yaml:"wkt"`
}

// vendorRegistry maps vendor coordinate-system names (as emitted by
// non-standard producer software) to registered EPSG codes, grouped by
// coordinate-system kind.
type vendorRegistry struct {
	Projected  map[string]int `yaml:"projected"`
	Geographic map[string]int `yaml:"geographic"`
	Vertical   map[string]int `yaml:"vertical"`
}

var (
	registryOnce sync.Once
	registryErr  error

	verticalByName   map[string]verticalEntry
	verticalByAbbrev map[string]verticalEntry
	vendorNames      vendorRegistry
)

// loadRegistries parses the embedded lookup tables. They are read-only and
// shared by every pipeline run, so parsing happens exactly once.
func loadRegistries() error {
	registryOnce.Do(func() {
		var entries []verticalEntry
		if err := yaml.Unmarshal(verticalsYAML, &entries); err != nil {
			registryErr = fmt.Errorf("parsing vertical datum registry: %w", err)
			return
		}
		verticalByName = make(map[string]verticalEntry, len(entries))
		verticalByAbbrev = make(map[string]verticalEntry, len(entries))
		for _, e := range entries {
			if e.Name != "" {
				verticalByName[e.Name] = e
			}
			if e.Abbrev != "" {
				verticalByAbbrev[strings.ToUpper(e.Abbrev)] = e
			}
		}

		if err := yaml.Unmarshal(vendorYAML, &vendorNames); err != nil {
			registryErr = fmt.Errorf("parsing vendor CRS registry: %w", err)
			return
		}
	})
	return registryErr
}

// lookupVertical resolves a friendly vertical datum name or abbreviation.
func lookupVertical(input string) (verticalEntry, bool) {
	if e, ok := verticalByName[input]; ok {
		return e, true
	}
	if e, ok := verticalByAbbrev[strings.ToUpper(input)]; ok {
		return e, true
	}
	return verticalEntry{}, false
}

// VendorEPSG resolves a vendor coordinate-system name to a registered EPSG
// code. Projected names are tried first, then geographic, then vertical.
// Returns 0 when the name is unknown.
func VendorEPSG(name string) int {
	if err := loadRegistries(); err != nil {
		return 0
	}
	if code, ok := vendorNames.Projected[name]; ok {
		return code
	}
	if code, ok := vendorNames.Geographic[name]; ok {
		return code
	}
	if code, ok := vendorNames.Vertical[name]; ok {
		return code
	}
	return 0
}
