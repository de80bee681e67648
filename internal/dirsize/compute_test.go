package dirsize

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSizeExample(t *testing.T) {
	t.Parallel()

	root := exampleTree(t)

	for strategy, opts := range allStrategies() {
		t.Run(string(strategy), func(t *testing.T) {
			t.Parallel()

			res, err := ComputeSize(context.Background(), root, opts)
			require.NoError(t, err)

			assert.Equal(t, int64(150), res.TotalSize)
			assert.Empty(t, res.Errors)
			assert.False(t, res.Partial)
			assert.Equal(t, int64(2), res.Files)
			assert.Equal(t, int64(3), res.Dirs)
			assert.Equal(t, strategy, res.Strategy)
			assert.Equal(t, realPath(t, root), res.Path)
		})
	}
}

func TestComputeSizeExactSumAcrossStrategies(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	want := layout(t, root, map[string]int{
		"a.bin":                  1,
		"b/c.bin":                22,
		"b/d/e.bin":              333,
		"b/d/f/g.bin":            4444,
		"b/d/f/h/":               0,
		"i/j.bin":                55555,
		"i/k/l.bin":              6,
		"m/n/o/p/q/r/s.bin":      77,
		"wide/01/x":              8,
		"wide/02/x":              9,
		"wide/03/x":              10,
		"wide/04/x":              11,
		"wide/05/x":              12,
		"wide/06/x":              13,
		"empty/also/empty/too/":  0,
		"zero-length-file.empty": 0,
	})

	for strategy, opts := range allStrategies() {
		t.Run(string(strategy), func(t *testing.T) {
			t.Parallel()

			first, err := ComputeSize(context.Background(), root, opts)
			require.NoError(t, err)
			assert.Equal(t, want, first.TotalSize)
			assert.False(t, first.Partial)

			// Repeated calls on an unmodified tree agree.
			second, err := ComputeSize(context.Background(), root, opts)
			require.NoError(t, err)
			assert.Equal(t, first.TotalSize, second.TotalSize)
			assert.Equal(t, first.Files, second.Files)
			assert.Equal(t, first.Dirs, second.Dirs)
		})
	}
}

func TestComputeSizeIgnoresSymlinkTargets(t *testing.T) {
	t.Parallel()

	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "huge"), 1<<16)

	root := exampleTree(t)
	symlink(t, root, filepath.Join(root, "dirB", "up"))
	symlink(t, filepath.Join(root, "dirB"), filepath.Join(root, "dirD", "sideways"))
	symlink(t, outside, filepath.Join(root, "outside"))
	symlink(t, filepath.Join(outside, "huge"), filepath.Join(root, "huge-link"))
	symlink(t, filepath.Join(root, "nowhere"), filepath.Join(root, "dangling"))

	for strategy, opts := range allStrategies() {
		t.Run(string(strategy), func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			res, err := ComputeSize(ctx, root, opts)
			require.NoError(t, err)
			assert.Equal(t, int64(150), res.TotalSize)
			assert.Empty(t, res.Errors)
		})
	}
}

func TestComputeSizeRootMayBeSymlink(t *testing.T) {
	t.Parallel()

	root := exampleTree(t)
	link := filepath.Join(t.TempDir(), "link")
	symlink(t, root, link)

	res, err := ComputeSize(context.Background(), link, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(150), res.TotalSize)
	assert.Equal(t, realPath(t, root), res.Path)
}

func TestComputeSizePartialFailure(t *testing.T) {
	root := exampleTree(t)
	dirB := filepath.Join(realPath(t, root), "dirB")
	lockDir(t, dirB)

	for strategy, opts := range allStrategies() {
		t.Run(string(strategy), func(t *testing.T) {
			res, err := ComputeSize(context.Background(), root, opts)
			require.NoError(t, err)

			assert.Equal(t, int64(100), res.TotalSize)
			assert.True(t, res.Partial)
			assert.Equal(t, []errorKey{{Path: dirB, Kind: KindAccessDenied}}, errorKeys(res.Errors))
			assert.ErrorIs(t, res.Errors[0], ErrAccessDenied)
		})
	}
}

func TestComputeSizePartialFailureDeep(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]int{
		"a/file":          10,
		"a/b/file":        20,
		"a/b/locked/file": 1000,
		"c/file":          30,
	})

	locked := filepath.Join(realPath(t, root), "a", "b", "locked")
	lockDir(t, locked)

	for strategy, opts := range allStrategies() {
		t.Run(string(strategy), func(t *testing.T) {
			res, err := ComputeSize(context.Background(), root, opts)
			require.NoError(t, err)

			assert.Equal(t, int64(60), res.TotalSize)
			assert.Equal(t, []errorKey{{Path: locked, Kind: KindAccessDenied}}, errorKeys(res.Errors))
		})
	}
}

func TestComputeSizeRootErrorsAreFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	writeFile(t, file, 7)

	for strategy, opts := range allStrategies() {
		t.Run(string(strategy), func(t *testing.T) {
			t.Parallel()

			res, err := ComputeSize(context.Background(), filepath.Join(dir, "missing"), opts)
			assert.Nil(t, res)
			require.ErrorIs(t, err, ErrNotFound)

			var fatal *FatalError
			require.ErrorAs(t, err, &fatal)
			assert.Equal(t, KindNotFound, fatal.Kind)

			res, err = ComputeSize(context.Background(), file, opts)
			assert.Nil(t, res)
			require.ErrorIs(t, err, ErrNotADirectory)
		})
	}
}

func TestComputeSizeLockedRootIsFatal(t *testing.T) {
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "file"), 5)
	lockDir(t, locked)

	for strategy, opts := range allStrategies() {
		t.Run(string(strategy), func(t *testing.T) {
			res, err := ComputeSize(context.Background(), locked, opts)
			assert.Nil(t, res)
			require.ErrorIs(t, err, ErrAccessDenied)
		})
	}
}

func TestComputeSizeRejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	_, err := ComputeSize(context.Background(), root, Options{Strategy: "magic"})
	require.ErrorContains(t, err, "invalid strategy")

	_, err = ComputeSize(context.Background(), root, Options{ThreadLimit: -1})
	require.ErrorContains(t, err, "thread limit")

	_, err = ComputeSize(context.Background(), root, Options{ProcessLimit: -2})
	require.ErrorContains(t, err, "process limit")
}

func TestComputeSizeCancelled(t *testing.T) {
	t.Parallel()

	root := exampleTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, strategy := range []Strategy{StrategySequential, StrategyThread, StrategyWalk} {
		res, err := ComputeSize(ctx, root, Options{Strategy: strategy})
		assert.Nil(t, res, strategy)
		assert.ErrorIs(t, err, context.Canceled, strategy)
	}
}

func TestComputeSizeReportsProgress(t *testing.T) {
	t.Parallel()

	root := exampleTree(t)

	var (
		mu   sync.Mutex
		seen []Progress
	)

	scan := func(path string) (*DirListing, error) {
		time.Sleep(20 * time.Millisecond)

		return ScanDir(path)
	}

	col := newCollector()

	ctx, cancel := context.WithCancel(context.Background())
	startProgressReporter(ctx, col, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()

		seen = append(seen, p)
	}, 5*time.Millisecond)

	require.NoError(t, newPoolAggregator(realPath(t, root), 1, col, Options{}.withDefaults().Logger, scan).run(ctx))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(seen) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()

	mu.Lock()
	defer mu.Unlock()

	for _, p := range seen {
		assert.LessOrEqual(t, p.Bytes, int64(150))
	}
}

func TestChildren(t *testing.T) {
	t.Parallel()

	root := exampleTree(t)
	symlink(t, root, filepath.Join(root, "Loop"))

	listing, err := Children(context.Background(), root, Options{Strategy: StrategyThread})
	require.NoError(t, err)

	names := make([]string, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		names = append(names, e.Name)
	}

	assert.Equal(t, []string{"dirB", "dirD", "fileA", "Loop"}, names)
	assert.Equal(t, int64(50), listing.Entries[0].Size)
	assert.Equal(t, KindDir, listing.Entries[0].Kind)
	assert.Equal(t, int64(0), listing.Entries[1].Size)
	assert.Equal(t, int64(100), listing.Entries[2].Size)
	assert.Equal(t, KindSymlink, listing.Entries[3].Kind)

	assert.Equal(t, int64(150), listing.Result.TotalSize)
	assert.Equal(t, int64(3), listing.Result.Dirs)
	assert.False(t, listing.Result.Partial)
}

func TestChildrenMarksUnreadableDirectories(t *testing.T) {
	root := exampleTree(t)
	dirB := filepath.Join(realPath(t, root), "dirB")
	lockDir(t, dirB)

	listing, err := Children(context.Background(), root, Options{})
	require.NoError(t, err)

	require.Len(t, listing.Entries, 3)
	assert.Equal(t, KindUnreadable, listing.Entries[0].Kind)
	require.NotNil(t, listing.Entries[0].Err)
	assert.Equal(t, KindAccessDenied, listing.Entries[0].Err.Kind)

	assert.Equal(t, int64(100), listing.Result.TotalSize)
	assert.True(t, listing.Result.Partial)
}

func TestChildrenRootMissing(t *testing.T) {
	t.Parallel()

	listing, err := Children(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Nil(t, listing)
	require.ErrorIs(t, err, os.ErrNotExist)
}
