package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileResult records the outcome of one file in a batch. Err is nil on
// success.
type FileResult struct {
	Input   string
	Output  string
	Err     error
	Elapsed time.Duration
}

// BatchReport aggregates per-file outcomes. A batch never aborts sibling
// files: every input gets a result, failed or not.
type BatchReport struct {
	Results []FileResult
	Elapsed time.Duration
}

// Failures returns the failed results, in input order.
func (r *BatchReport) Failures() []FileResult {
	var failed []FileResult
	for _, fr := range r.Results {
		if fr.Err != nil {
			failed = append(failed, fr)
		}
	}
	return failed
}

// Run optimizes every input into outDir over a bounded worker pool and
// returns the aggregated report. The worker count comes from
// opts.Concurrency, minimum one.
func Run(inputs []string, outDir string, opts *Options) (*BatchReport, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	start := time.Now()
	report := &BatchReport{Results: make([]FileResult, len(inputs))}

	var pb *progressBar
	if !opts.Verbose {
		pb = newProgressBar("Optimizing", int64(len(inputs)))
	}

	type job struct {
		idx   int
		input string
	}
	jobs := make(chan job, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				output := OutputPath(outDir, j.input)
				fileStart := time.Now()
				_, err := Process(j.input, output, opts)
				report.Results[j.idx] = FileResult{
					Input:   j.input,
					Output:  output,
					Err:     err,
					Elapsed: time.Since(fileStart),
				}
				if err != nil && opts.Verbose {
					log.Printf("%s: %v", j.input, err)
				}
				if pb != nil {
					pb.Increment()
				}
			}
		}()
	}

	for i, input := range inputs {
		jobs <- job{idx: i, input: input}
	}
	close(jobs)
	wg.Wait()

	if pb != nil {
		pb.Finish()
	}
	report.Elapsed = time.Since(start)
	return report, nil
}

// OutputPath maps an input file to its output location: same base name
// in the output directory, always with a .tif extension.
func OutputPath(outDir, input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".tif", ".tiff":
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(outDir, base+".tif")
}

// CollectInputs expands a path into the list of files to process: a file
// is itself, a directory is its GeoTIFF entries, sorted.
func CollectInputs(path string) ([]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", path, err)
	}
	var inputs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff":
			inputs = append(inputs, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(inputs)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no GeoTIFF files in %s", path)
	}
	return inputs, nil
}
