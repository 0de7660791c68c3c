package raster

import (
	"log"
	"runtime"
)

// DefaultStripBudget is the strip pixel budget used when RAM detection is
// unavailable: 64 MB per strip keeps even 8-band float64 rasters well
// clear of memory pressure.
const DefaultStripBudget = 64 * 1024 * 1024

// DefaultMemoryFraction is the fraction of total RAM the strip budget may
// claim.
const DefaultMemoryFraction = 0.25

// ComputeStripBudget returns the bytes one processing strip may occupy.
// It takes a fraction of total system RAM and subtracts the current Go
// heap overhead to leave headroom for the raster library's own caches and
// encode buffers.
//
// Falls back to DefaultStripBudget if RAM detection fails or the computed
// budget is unreasonably small.
func ComputeStripBudget(fraction float64, verbose bool) int64 {
	totalRAM, err := totalSystemRAM()
	if err != nil {
		if verbose {
			log.Printf("Cannot detect system RAM: %v; using %d MB strip budget", err, DefaultStripBudget/(1024*1024))
		}
		return DefaultStripBudget
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	overhead := m.Sys + 512*1024*1024 // current usage + fixed headroom

	budget := int64(float64(totalRAM)*fraction) - int64(overhead)
	if budget < DefaultStripBudget {
		return DefaultStripBudget
	}

	if verbose {
		log.Printf("Strip budget: %.1f GB (%.0f%% of RAM minus %.1f GB overhead)",
			float64(budget)/(1024*1024*1024), fraction*100, float64(overhead)/(1024*1024*1024))
	}

	return budget
}
