package dirsize

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// scanFunc lists a single directory. It is ScanDir outside of tests.
type scanFunc func(path string) (*DirListing, error)

// measureSequential walks the tree one directory at a time using an explicit
// stack, so tree depth never grows the call stack.
func measureSequential(ctx context.Context, root string, col *collector, log *slog.Logger) error {
	stack := []string{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		listing, err := ScanDir(path)
		if err != nil {
			if path == root {
				return newFatal(root, err)
			}

			recordError(col, log, subtreeError(path, err))

			continue
		}

		log.Debug("scanned directory", "path", path, "bytes", listing.FileBytes, "subdirs", len(listing.Subdirs))
		col.addListing(listing)
		logListingErrors(log, listing)

		// Push in reverse so directories are visited in name order.
		for i := len(listing.Subdirs) - 1; i >= 0; i-- {
			stack = append(stack, listing.Subdirs[i])
		}
	}

	return nil
}

// poolAggregator measures a tree with a bounded number of concurrent scans.
//
// Every discovered subdirectory becomes its own goroutine which queues on the
// semaphore before scanning. A unit returns as soon as its children are
// scheduled, so depth is bounded by the filesystem and not by any call chain.
type poolAggregator struct {
	root string
	col  *collector
	log  *slog.Logger
	scan scanFunc
	sem  *semaphore.Weighted
	wg   sync.WaitGroup

	// fatal is written only by the root unit and read after wg.Wait.
	fatal error
}

func newPoolAggregator(root string, limit int, col *collector, log *slog.Logger, scan scanFunc) *poolAggregator {
	if scan == nil {
		scan = ScanDir
	}

	return &poolAggregator{
		root: root,
		col:  col,
		log:  log,
		scan: scan,
		sem:  semaphore.NewWeighted(int64(limit)),
	}
}

// run schedules the root and blocks until every unit has completed.
func (a *poolAggregator) run(ctx context.Context) error {
	a.schedule(ctx, a.root)
	a.wg.Wait()

	if a.fatal != nil {
		return a.fatal
	}

	return ctx.Err()
}

// schedule submits one directory as an independent unit of work.
func (a *poolAggregator) schedule(ctx context.Context, path string) {
	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		if err := a.sem.Acquire(ctx, 1); err != nil {
			// Cancelled while queued; run reports ctx.Err().
			return
		}

		listing, err := a.scan(path)
		a.sem.Release(1)

		if err != nil {
			if path == a.root {
				a.fatal = newFatal(a.root, err)

				return
			}

			recordError(a.col, a.log, subtreeError(path, err))

			return
		}

		a.log.Debug("scanned directory", "path", path, "bytes", listing.FileBytes, "subdirs", len(listing.Subdirs))
		a.col.addListing(listing)
		logListingErrors(a.log, listing)

		for _, sub := range listing.Subdirs {
			a.schedule(ctx, sub)
		}
	}()
}

// measureThreaded measures the tree with a pool of at most limit concurrent scans.
func measureThreaded(ctx context.Context, root string, limit int, col *collector, log *slog.Logger) error {
	return newPoolAggregator(root, limit, col, log, nil).run(ctx)
}

func recordError(col *collector, log *slog.Logger, e ScanError) {
	log.Warn("partial failure", "path", e.Path, "kind", e.Kind, "error", e.Err)
	col.addError(e)
}

func logListingErrors(log *slog.Logger, l *DirListing) {
	for _, e := range l.Errors {
		log.Warn("partial failure", "path", e.Path, "kind", e.Kind, "error", e.Err)
	}
}
