package dirsize

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// workerArgv returns the command used to start a worker process.
// The default worker inherits debug logging from the dispatcher.
func (o Options) workerArgv() ([]string, error) {
	if len(o.WorkerCommand) > 0 {
		return o.WorkerCommand, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}

	argv := []string{exe, WorkerSubcommand}
	if o.Logger.Enabled(context.Background(), slog.LevelDebug) {
		argv = append(argv, "--debug")
	}

	return argv, nil
}

// measureHybrid sums the root's direct files itself and hands each top-level
// subdirectory to exactly one of a bounded pool of worker processes.
// Workers exchange only values with the dispatcher: a path goes in, a result
// or a failure comes out.
func measureHybrid(ctx context.Context, root string, opts Options, col *collector) error {
	log := opts.Logger

	listing, err := ScanDir(root)
	if err != nil {
		return newFatal(root, err)
	}

	col.addListing(listing)
	logListingErrors(log, listing)

	if len(listing.Subdirs) == 0 {
		return nil
	}

	argv, argvErr := opts.workerArgv()

	jobs := make(chan string)
	group, gctx := errgroup.WithContext(ctx)

	for i := range min(opts.ProcessLimit, len(listing.Subdirs)) {
		slot := &processSlot{
			argv:        argv,
			argvErr:     argvErr,
			env:         opts.WorkerEnv,
			threadLimit: opts.ThreadLimit,
			log:         log.With("worker", i),
		}

		group.Go(func() error {
			slot.drain(gctx, jobs, col)

			return nil
		})
	}

feed:
	for _, sub := range listing.Subdirs {
		select {
		case jobs <- sub:
		case <-gctx.Done():
			break feed
		}
	}

	close(jobs)

	_ = group.Wait()

	return ctx.Err()
}

// processSlot owns at most one worker process at a time. A process that
// fails is discarded and a fresh one is started for the next job.
type processSlot struct {
	argv        []string
	argvErr     error
	env         []string
	threadLimit int
	log         *slog.Logger
	proc        *workerProcess
}

// drain measures jobs until the channel is closed. Every job contributes
// either its subtree result or an error attributed to its path.
func (s *processSlot) drain(ctx context.Context, jobs <-chan string, col *collector) {
	defer s.shutdown(false)

	for path := range jobs {
		resp, err := s.measure(ctx, path)
		if err != nil {
			s.shutdown(true)
			recordError(col, s.log, ScanError{Path: path, Kind: KindWorkerFailed, Err: err})

			continue
		}

		if resp.Fatal != nil {
			recordError(col, s.log, subtreeError(path, *resp.Fatal))

			continue
		}

		s.log.Debug("subtree measured", "path", path, "bytes", resp.TotalSize, "errors", len(resp.Errors))

		for _, e := range resp.Errors {
			s.log.Warn("partial failure", "path", e.Path, "kind", e.Kind, "error", e.Err)
		}

		col.addResult(&ScanResult{
			TotalSize: resp.TotalSize,
			Files:     resp.Files,
			Dirs:      resp.Dirs,
			Errors:    resp.Errors,
		})
	}
}

func (s *processSlot) measure(ctx context.Context, path string) (*workerResponse, error) {
	if s.argvErr != nil {
		return nil, s.argvErr
	}

	if s.proc == nil {
		proc, err := startWorker(ctx, s.argv, s.env)
		if err != nil {
			return nil, err
		}

		s.log.Debug("worker started", "pid", proc.cmd.Process.Pid)
		s.proc = proc
	}

	return s.proc.roundTrip(workerRequest{
		ID:          uuid.NewString(),
		Path:        path,
		ThreadLimit: s.threadLimit,
	})
}

func (s *processSlot) shutdown(kill bool) {
	if s.proc == nil {
		return
	}

	if err := s.proc.close(kill); err != nil && !kill {
		s.log.Debug("worker exited with error", "error", err)
	}

	s.proc = nil
}
