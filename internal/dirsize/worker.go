package dirsize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// workerRequest asks a worker process to measure one subtree.
type workerRequest struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	ThreadLimit int    `json:"thread_limit"`
}

// workerResponse carries the measurement of one subtree back to the dispatcher.
// Fatal is set when the subtree root itself could not be listed.
type workerResponse struct {
	ID        string      `json:"id"`
	Path      string      `json:"path"`
	TotalSize int64       `json:"total_size"`
	Files     int64       `json:"files"`
	Dirs      int64       `json:"dirs"`
	Errors    []ScanError `json:"errors"`
	Fatal     *ScanError  `json:"fatal,omitempty"`
}

// Serve runs the worker side of StrategyHybrid. It reads newline-delimited
// JSON requests from r, measures each requested subtree with a bounded
// goroutine pool and writes one JSON response per request to w.
// It returns nil when r is exhausted.
func Serve(ctx context.Context, r io.Reader, w io.Writer, opts Options) error {
	opts = opts.withDefaults()

	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)

	for {
		var req workerRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("decoding request: %w", err)
		}

		resp := handleRequest(ctx, req, opts.Logger)

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
	}
}

// handleRequest measures the requested subtree. The path is used as given:
// it was discovered by the dispatcher without following symlinks.
func handleRequest(ctx context.Context, req workerRequest, log *slog.Logger) workerResponse {
	limit := req.ThreadLimit
	if limit < 1 {
		limit = DefaultThreadLimit
	}

	log = log.With("request", req.ID)
	log.Debug("measuring subtree", "path", req.Path, "threads", limit)

	col := newCollector()
	resp := workerResponse{ID: req.ID, Path: req.Path}

	if err := measureThreaded(ctx, req.Path, limit, col, log); err != nil {
		fatal := ScanError{Path: req.Path, Kind: Classify(err), Err: err}
		resp.Fatal = &fatal
		resp.Errors = []ScanError{}

		return resp
	}

	res := col.finalize(req.Path, StrategyThread)
	resp.TotalSize = res.TotalSize
	resp.Files = res.Files
	resp.Dirs = res.Dirs
	resp.Errors = res.Errors

	return resp
}

// workerProcess is one running worker, exchanging values over its stdio.
type workerProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
	dec   *json.Decoder
}

// startWorker launches a worker process from argv.
func startWorker(ctx context.Context, argv, env []string) (*workerProcess, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty worker command")
	}

	//nolint:gosec // The worker command is configured by the caller
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating worker stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating worker stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %q: %w", argv[0], err)
	}

	return &workerProcess{
		cmd:   cmd,
		stdin: stdin,
		enc:   json.NewEncoder(stdin),
		dec:   json.NewDecoder(stdout),
	}, nil
}

// roundTrip sends one request and waits for its response.
func (p *workerProcess) roundTrip(req workerRequest) (*workerResponse, error) {
	if err := p.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	var resp workerResponse
	if err := p.dec.Decode(&resp); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, fmt.Errorf("worker exited before responding: %w", err)
	}

	if resp.ID != req.ID {
		return nil, fmt.Errorf("response %q does not match request %q", resp.ID, req.ID)
	}

	return &resp, nil
}

// close shuts the worker down. A healthy worker exits once its stdin is
// closed; a failed one is killed first.
func (p *workerProcess) close(kill bool) error {
	_ = p.stdin.Close()

	if kill {
		_ = p.cmd.Process.Kill()
	}

	return p.cmd.Wait()
}
