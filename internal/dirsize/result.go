package dirsize

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// ScanResult is the outcome of one measurement. It is created fresh per call
// and never modified after it is returned.
type ScanResult struct {
	// Path is the measured root.
	Path string `json:"path"`
	// TotalSize is the sum in bytes of every file that could be measured.
	TotalSize int64 `json:"total_size"`
	// Errors holds every subtree that could not be measured, sorted by path.
	Errors []ScanError `json:"errors"`
	// Partial is true iff Errors is non-empty.
	Partial bool `json:"partial"`
	// Files is the number of files counted.
	Files int64 `json:"files"`
	// Dirs is the number of directories successfully listed, including the root.
	Dirs int64 `json:"dirs"`
	// Strategy is the strategy that produced the result.
	Strategy Strategy `json:"strategy"`
	// Elapsed is the total time taken for the measurement.
	Elapsed time.Duration `json:"elapsed"`
}

// collector merges partial results from concurrent units of work.
// It is the only shared mutable state of a measurement.
type collector struct {
	mu     sync.Mutex
	bytes  int64
	files  int64
	dirs   int64
	errors []ScanError
}

func newCollector() *collector {
	return &collector{errors: make([]ScanError, 0)}
}

// addListing adds the direct files of one scanned directory.
func (c *collector) addListing(l *DirListing) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bytes += l.FileBytes
	c.files += l.Files
	c.dirs++
	c.errors = append(c.errors, l.Errors...)
}

// addFile adds a single measured file.
func (c *collector) addFile(size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bytes += size
	c.files++
}

// addDirs adjusts the number of directories listed successfully.
func (c *collector) addDirs(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dirs += n
}

// addError records a subtree that contributes 0 bytes.
func (c *collector) addError(e ScanError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors = append(c.errors, e)
}

// addResult merges a complete subtree result.
func (c *collector) addResult(r *ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bytes += r.TotalSize
	c.files += r.Files
	c.dirs += r.Dirs
	c.errors = append(c.errors, r.Errors...)
}

// snapshot returns the running totals.
func (c *collector) snapshot() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Progress{Dirs: c.dirs, Files: c.files, Bytes: c.bytes}
}

// finalize produces the ScanResult. Errors are sorted so the order does not
// depend on completion order.
func (c *collector) finalize(path string, strategy Strategy) *ScanResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := slices.Clone(c.errors)
	slices.SortStableFunc(errs, func(a, b ScanError) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Kind, b.Kind))
	})

	return &ScanResult{
		Path:      path,
		TotalSize: c.bytes,
		Errors:    errs,
		Partial:   len(errs) > 0,
		Files:     c.files,
		Dirs:      c.dirs,
		Strategy:  strategy,
	}
}
