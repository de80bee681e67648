package dirsize

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"
)

// Strategy selects how a tree is traversed.
type Strategy string

const (
	// StrategySequential scans one directory at a time on the calling goroutine.
	StrategySequential Strategy = "sequential"
	// StrategyThread fans out subdirectories to a bounded pool of goroutines.
	StrategyThread Strategy = "thread"
	// StrategyHybrid spreads top-level subdirectories across worker processes,
	// each of which measures its subtree with StrategyThread.
	StrategyHybrid Strategy = "hybrid"
	// StrategyWalk uses a parallel fastwalk traversal.
	StrategyWalk Strategy = "walk"
)

// Strategies lists every supported strategy.
//
//nolint:gochecknoglobals // Lookup table
var Strategies = []Strategy{StrategySequential, StrategyThread, StrategyHybrid, StrategyWalk}

const (
	// DefaultThreadLimit is the default number of concurrent directory scans.
	DefaultThreadLimit = 8
	// DefaultProcessLimit is the default number of worker processes for StrategyHybrid.
	DefaultProcessLimit = 4
	// DefaultProgressInterval is the default interval for progress updates.
	DefaultProgressInterval = 500 * time.Millisecond
)

// WorkerSubcommand is the argument appended to the running executable
// when no explicit worker command is configured.
const WorkerSubcommand = "worker"

// Progress is a snapshot of an ongoing measurement.
type Progress struct {
	Dirs  int64
	Files int64
	Bytes int64
}

// Options configures a single measurement. All tuning is passed explicitly;
// the package holds no process-wide state.
type Options struct {
	// Strategy selects the traversal strategy. Defaults to StrategyThread.
	Strategy Strategy
	// ThreadLimit bounds the number of concurrently executing directory scans.
	ThreadLimit int
	// ProcessLimit bounds the number of worker processes used by StrategyHybrid.
	ProcessLimit int
	// Logger receives debug and warning records. Nil discards them.
	Logger *slog.Logger
	// Progress, if set, is called periodically with a snapshot of the totals.
	Progress func(Progress)
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// WorkerCommand is the argv used to start a worker process.
	// Defaults to the running executable followed by WorkerSubcommand.
	WorkerCommand []string
	// WorkerEnv is appended to the environment of worker processes.
	WorkerEnv []string
}

// withDefaults fills zero values with defaults.
func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyThread
	}

	if o.ThreadLimit == 0 {
		o.ThreadLimit = DefaultThreadLimit
	}

	if o.ProcessLimit == 0 {
		o.ProcessLimit = DefaultProcessLimit
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return o
}

// Validate reports invalid option values.
func (o Options) Validate() error {
	if !slices.Contains(Strategies, o.Strategy) {
		return fmt.Errorf("invalid strategy %q: must be one of %v", o.Strategy, Strategies)
	}

	if o.ThreadLimit < 1 {
		return fmt.Errorf("thread limit must be positive, got %d", o.ThreadLimit)
	}

	if o.ProcessLimit < 1 {
		return fmt.Errorf("process limit must be positive, got %d", o.ProcessLimit)
	}

	return nil
}
