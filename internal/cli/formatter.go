package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/idelchi/dirsize/internal/dirsize"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// PrintJSON outputs a value in JSON format.
func PrintJSON(v any, writer io.Writer) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// size formats a byte count with binary units.
func size(n int64) string {
	return humanize.IBytes(uint64(n)) //nolint:gosec // Sizes are never negative
}

// PrintTable outputs a measurement in human-readable table format.
func PrintTable(result *dirsize.ScanResult, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)

	fmt.Fprintf(w, "Path:\t%s\n", result.Path)
	fmt.Fprintf(w, "Total size:\t%s (%d bytes)\n", size(result.TotalSize), result.TotalSize)
	fmt.Fprintf(w, "Files:\t%d\n", result.Files)
	fmt.Fprintf(w, "Directories:\t%d\n", result.Dirs)

	if result.Partial {
		fmt.Fprintf(w, "Errors:\t%d (partial result)\n", len(result.Errors))
	}

	fmt.Fprintf(w, "\nStrategy:\t%s\n", result.Strategy)
	fmt.Fprintf(w, "Elapsed:\t%v\n", result.Elapsed)

	return w.Flush()
}

// PrintListing outputs every child with its size, followed by the total.
func PrintListing(listing *dirsize.Listing, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)
	result := listing.Result

	for _, e := range listing.Entries {
		pct := 0.0
		if result.TotalSize > 0 {
			pct = 100.0 * float64(e.Size) / float64(result.TotalSize)
		}

		switch e.Kind {
		case dirsize.KindDir:
			fmt.Fprintf(w, "  %s/\t%s\t(%.1f%%)\n", e.Name, size(e.Size), pct)
		case dirsize.KindUnreadable:
			fmt.Fprintf(w, "  %s\t%s\t\n", e.Name, color.RedString("unreadable"))
		case dirsize.KindSymlink:
			fmt.Fprintf(w, "  %s@\t-\t\n", e.Name)
		default:
			fmt.Fprintf(w, "  %s\t%s\t(%.1f%%)\n", e.Name, size(e.Size), pct)
		}
	}

	fmt.Fprintf(w, "\nTotal:\t%s (%d bytes)\t\n", size(result.TotalSize), result.TotalSize)

	return w.Flush()
}

// PrintPlain outputs "<bytes>\t<path>" for scripting.
func PrintPlain(result *dirsize.ScanResult, writer io.Writer) error {
	_, err := fmt.Fprintf(writer, "%d\t%s\n", result.TotalSize, result.Path)

	return err
}

// PrintPlainListing outputs "<human size>\t<kind>\t<path>" per child, for fzf.
func PrintPlainListing(listing *dirsize.Listing, writer io.Writer) error {
	for _, e := range listing.Entries {
		if _, err := fmt.Fprintf(writer, "%s\t%s\t%s\n", size(e.Size), e.Kind, e.Path); err != nil {
			return err
		}
	}

	return nil
}

// PrintWarnings lists the paths excluded from a partial result.
func PrintWarnings(result *dirsize.ScanResult, writer io.Writer) {
	warn := color.New(color.FgYellow)

	warn.Fprintf(writer, "warning: %d path(s) could not be measured; the total is a lower bound\n", len(result.Errors))

	for _, e := range result.Errors {
		fmt.Fprintf(writer, "  %s\t%s\t%v\n", e.Kind, e.Path, e.Err)
	}
}
