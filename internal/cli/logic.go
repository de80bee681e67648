package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/idelchi/dirsize/internal/dirsize"
)

// newLogger returns a text logger on w. Without debug only errors are
// logged; partial failures are reported with the result instead.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func logic(cmd *cobra.Command, options Options) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	enableProgress := options.Output == "table" &&
		!options.Debug &&
		isTerminal(stderr)

	opts := dirsize.Options{
		Strategy:     dirsize.Strategy(options.Strategy),
		ThreadLimit:  options.Threads,
		ProcessLimit: options.Processes,
		Logger:       newLogger(stderr, options.Debug),
	}

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		opts.Progress = func(p dirsize.Progress) {
			msg := fmt.Sprintf("Scanning… %d dirs, %d files, %s",
				p.Dirs, p.Files, humanize.IBytes(uint64(p.Bytes))) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}
	}

	var (
		result  *dirsize.ScanResult
		listing *dirsize.Listing
		err     error
	)

	if options.Children {
		listing, err = dirsize.Children(cmd.Context(), options.Path, opts)
		if listing != nil {
			result = listing.Result
		}
	} else {
		result, err = dirsize.ComputeSize(cmd.Context(), options.Path, opts)
	}

	// Clear the status line
	if enableProgress {
		fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if err != nil {
		return err
	}

	if err := render(stdout, options.Output, result, listing); err != nil {
		return err
	}

	if result.Partial && options.Output != "json" {
		PrintWarnings(result, stderr)
	}

	return nil
}

func render(w io.Writer, output string, result *dirsize.ScanResult, listing *dirsize.Listing) error {
	switch output {
	case "json":
		if listing != nil {
			return PrintJSON(listing, w)
		}

		return PrintJSON(result, w)
	case "plain":
		if listing != nil {
			return PrintPlainListing(listing, w)
		}

		return PrintPlain(result, w)
	case "table":
		if listing != nil {
			return PrintListing(listing, w)
		}

		return PrintTable(result, w)
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}
}
