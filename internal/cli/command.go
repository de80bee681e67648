package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/idelchi/dirsize/internal/config"
	"github.com/idelchi/dirsize/internal/dirsize"
	"github.com/idelchi/dirsize/internal/integration"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// Options holds the parsed command-line flags.
type Options struct {
	// Path is the directory to measure.
	Path string
	// Strategy is the traversal strategy.
	Strategy string
	// Threads bounds concurrent directory scans.
	Threads int
	// Processes bounds worker processes for the hybrid strategy.
	Processes int
	// Output represents output format (table, json or plain).
	Output string
	// Children lists every immediate child with its size.
	Children bool
	// Debug indicates whether debug output is enabled.
	Debug bool
	// ConfigPath overrides the configuration file location.
	ConfigPath string
	// Version indicates whether to show version and exit.
	Version bool
}

// Execute runs the CLI with the process arguments. An interrupt cancels
// a running measurement.
func (c CLI) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.Command().ExecuteContext(ctx)
}

// Command builds the root command and its subcommands.
func (c CLI) Command() *cobra.Command {
	var options Options

	root := &cobra.Command{
		Use:   "dirsize [flags] [path]",
		Short: "Measure the total size of a directory tree",
		Long: heredoc.Doc(`
			dirsize measures the total size in bytes of a directory tree.

			Symlinks below the given path are never followed. Directories that cannot
			be read are reported and excluded from the total instead of aborting the
			measurement; the result is then marked as partial.

			Strategies:
			  sequential   one directory at a time
			  thread       bounded pool of concurrent scans (--threads)
			  hybrid       top-level subdirectories spread across worker processes
			               (--processes), each running a thread pool
			  walk         parallel fastwalk traversal

			Defaults can be set in a YAML file (see --config) with the keys
			strategy, threads, processes and output.
		`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if options.Version {
				fmt.Fprintln(cmd.OutOrStdout(), c.version)

				return nil
			}

			options.Path = "."
			if len(args) > 0 {
				options.Path = args[0]
			}

			if err := resolve(cmd, &options); err != nil {
				return err
			}

			return logic(cmd, options)
		},
	}

	defaults := config.Default()
	flags := root.Flags()

	flags.StringVarP(&options.Strategy, "strategy", "s", defaults.Strategy,
		fmt.Sprintf("Traversal strategy: one of %v", dirsize.Strategies))
	flags.IntVarP(&options.Threads, "threads", "j", defaults.Threads, "Maximum number of concurrent directory scans")
	flags.IntVarP(&options.Processes, "processes", "p", defaults.Processes, "Number of worker processes (hybrid strategy)")
	flags.StringVarP(&options.Output, "output", "o", defaults.Output, fmt.Sprintf("Output format: one of %v", config.Outputs))
	flags.BoolVarP(&options.Children, "children", "c", false, "List every immediate child with its size")
	flags.StringVar(&options.ConfigPath, "config", "", "Configuration file (default: <user config dir>/dirsize/config.yaml)")
	flags.BoolVar(&options.Debug, "debug", false, "Enable debug output")
	flags.BoolVarP(&options.Version, "version", "v", false, "Show version and exit")
	flags.SortFlags = false

	root.AddCommand(workerCommand(), initCommand())

	return root
}

// resolve layers explicitly set flags over the configuration file.
func resolve(cmd *cobra.Command, options *Options) error {
	path := options.ConfigPath
	explicit := path != ""

	if !explicit {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			// Without a config directory there is nothing to load.
			path = ""
		}
	}

	cfg := config.Default()

	if path != "" {
		if explicit {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("config file: %w", err)
			}
		}

		loaded, err := config.Load(path)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	flags := cmd.Flags()

	if flags.Changed("strategy") {
		cfg.Strategy = options.Strategy
	}

	if flags.Changed("threads") {
		cfg.Threads = options.Threads
	}

	if flags.Changed("processes") {
		cfg.Processes = options.Processes
	}

	if flags.Changed("output") {
		cfg.Output = options.Output
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	options.Strategy = cfg.Strategy
	options.Threads = cfg.Threads
	options.Processes = cfg.Processes
	options.Output = cfg.Output

	return nil
}

// workerCommand serves hybrid measurement requests over stdin and stdout.
func workerCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:    dirsize.WorkerSubcommand,
		Short:  "Serve subtree measurements for the hybrid strategy",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return dirsize.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), dirsize.Options{
				Logger: newLogger(cmd.ErrOrStderr(), debug),
			})
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug output")

	return cmd
}

// initCommand prints the shell integration script.
func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Output init script for shell usage",
		Long: heredoc.Doc(`
			Output a zsh function 'dsz' that lists the children of a directory
			with their sizes in fzf and changes into the selected one.

			Add to your .zshrc:

			  eval "$(dirsize init)"
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rendered, err := integration.Render()
			if err != nil {
				return fmt.Errorf("rendering integration script: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), rendered)

			return nil
		},
	}
}
