// Command dirsize measures the total size of a directory tree.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/idelchi/dirsize/internal/cli"
)

// Version is set at build time.
//
//nolint:gochecknoglobals // Build-time variable
var version = "unknown - unofficial build"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
