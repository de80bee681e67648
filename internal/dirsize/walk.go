package dirsize

import (
	"context"
	"io/fs"
	"log/slog"

	"github.com/charlievieth/fastwalk"
)

// measureWalk measures the tree with fastwalk's parallel traversal using
// limit walker goroutines.
func measureWalk(ctx context.Context, root string, limit int, col *collector, log *slog.Logger) error {
	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		NumWorkers: limit,
	}

	//nolint:varnamelen // d is standard for DirEntry
	return fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == root {
				return newFatal(root, err)
			}

			// A directory is reported once before it is read and again
			// if reading it fails.
			if d != nil && d.IsDir() {
				col.addDirs(-1)
			}

			recordError(col, log, subtreeError(path, err))

			return nil
		}

		switch typ := d.Type(); {
		case typ.IsDir():
			log.Debug("entering directory", "path", path)
			col.addDirs(1)
		case typ.IsRegular():
			info, err := d.Info()
			if err != nil {
				recordError(col, log, subtreeError(path, err))

				return nil
			}

			col.addFile(info.Size())
		}

		return nil
	})
}
