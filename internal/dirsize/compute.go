package dirsize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// resolveRoot returns the absolute, symlink-free path of a directory.
// The root argument itself may be a symlink; nothing below it is followed.
func resolveRoot(path string) (string, error) {
	if path == "" {
		path = "."
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", newFatal(path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", newFatal(abs, err)
	}

	if !info.IsDir() {
		return "", &FatalError{Path: abs, Kind: KindNotADirectory, Err: ErrNotADirectory}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", newFatal(abs, err)
	}

	return resolved, nil
}

// startProgressReporter invokes hook with a snapshot on each tick until ctx is done.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, hook func(Progress), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(c.snapshot())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ComputeSize measures the total size of the directory tree rooted at path.
//
// Failures below the root are collected in the result's Errors and contribute
// 0 bytes. A failure on the root itself is returned as a *FatalError and no
// result is produced. Cancelling ctx aborts the measurement with ctx.Err().
func ComputeSize(ctx context.Context, path string, opts Options) (*ScanResult, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	root, err := resolveRoot(path)
	if err != nil {
		return nil, err
	}

	log := opts.Logger.With("root", root, "strategy", opts.Strategy)
	opts.Logger = log

	log.Debug("measuring", "threads", opts.ThreadLimit, "processes", opts.ProcessLimit)

	start := time.Now()
	col := newCollector()

	// Child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(ctx, col, opts.Progress, opts.ProgressInterval)

	switch opts.Strategy {
	case StrategySequential:
		err = measureSequential(ctx, root, col, log)
	case StrategyThread:
		err = measureThreaded(ctx, root, opts.ThreadLimit, col, log)
	case StrategyWalk:
		err = measureWalk(ctx, root, opts.ThreadLimit, col, log)
	case StrategyHybrid:
		err = measureHybrid(ctx, root, opts, col)
	}

	if err != nil {
		return nil, err
	}

	result := col.finalize(root, opts.Strategy)
	result.Elapsed = time.Since(start)

	log.Debug("measured", "bytes", result.TotalSize, "errors", len(result.Errors), "elapsed", result.Elapsed)

	return result, nil
}

// Listing is the content of one directory with every child measured.
type Listing struct {
	// Entries holds every immediate child, sorted case-insensitively by name.
	Entries []PathEntry `json:"entries"`
	// Result aggregates the whole tree, exactly as ComputeSize would.
	Result *ScanResult `json:"result"`
}

// Children lists the immediate children of path with their sizes.
// Child directories are measured with the configured strategy; a child
// that cannot be measured is reported as KindUnreadable with its error.
func Children(ctx context.Context, path string, opts Options) (*Listing, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	root, err := resolveRoot(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	listing, err := ScanDir(root)
	if err != nil {
		return nil, newFatal(root, err)
	}

	col := newCollector()
	col.addListing(listing)

	// Child progress is reported on top of what has been measured so far.
	childOpts := opts
	if opts.Progress != nil {
		childOpts.Progress = func(p Progress) {
			base := col.snapshot()
			opts.Progress(Progress{Dirs: base.Dirs + p.Dirs, Files: base.Files + p.Files, Bytes: base.Bytes + p.Bytes})
		}
	}

	entries := slices.Clone(listing.Entries)

	for i := range entries {
		if entries[i].Kind != KindDir {
			continue
		}

		res, err := ComputeSize(ctx, entries[i].Path, childOpts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("measuring %q: %w", entries[i].Path, ctxErr)
			}

			scanErr := subtreeError(entries[i].Path, err)
			entries[i].Kind = KindUnreadable
			entries[i].Err = &scanErr
			col.addError(scanErr)

			continue
		}

		entries[i].Size = res.TotalSize
		col.addResult(res)
	}

	slices.SortStableFunc(entries, func(a, b PathEntry) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	result := col.finalize(root, opts.Strategy)
	result.Elapsed = time.Since(start)

	return &Listing{Entries: entries, Result: result}, nil
}
