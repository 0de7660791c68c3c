package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// BandStats carries the per-band statistics gathered during the streaming
// pass, written alongside the output as a .stats.json sidecar.
type BandStats struct {
	Band   int     `json:"band"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Count  int64   `json:"count"`
}

type statsSidecar struct {
	Bands []BandStats `json:"bands"`
}

// WriteStatsSidecar writes the statistics sidecar next to the output
// file, as <output>.stats.json. Bands with no valid samples carry nulls
// for their extrema, since ±Inf has no JSON representation.
func WriteStatsSidecar(output string, bands []BandStats) error {
	clean := make([]BandStats, len(bands))
	copy(clean, bands)
	for i := range clean {
		if clean[i].Count == 0 {
			clean[i].Min = 0
			clean[i].Max = 0
		}
		if math.IsInf(clean[i].Min, 0) || math.IsInf(clean[i].Max, 0) {
			clean[i].Min = 0
			clean[i].Max = 0
		}
	}

	data, err := json.MarshalIndent(statsSidecar{Bands: clean}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding statistics for %s: %w", output, err)
	}
	path := output + ".stats.json"
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
