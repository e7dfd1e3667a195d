package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/pagegrep/pagegrep/abort"
	"github.com/pagegrep/pagegrep/config"
	"github.com/pagegrep/pagegrep/files"
	"github.com/pagegrep/pagegrep/internal/fileutil"
	"github.com/pagegrep/pagegrep/internal/logging"
	"github.com/pagegrep/pagegrep/render"
	"github.com/pagegrep/pagegrep/source"
	"github.com/spf13/cobra"
)

// searchOptions holds the command-line flags of one invocation.
type searchOptions struct {
	shuffle    bool
	sort       bool
	printLine  bool
	printPath  bool
	follow     bool
	configPath string
	saveConfig bool
	workers    int
	logFile    string
	logLevel   string
}

// NewRootCommand builds the pagegrep command.
func NewRootCommand() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "pagegrep [<root-dir>] <search-target>",
		Short: "Search the pages of every document under a directory",
		Long: `Search every document under a directory for a case-insensitive substring.

Matching documents are listed with the pages that contain the target while the
search is still running. The root directory defaults to the current directory.
Type q and press enter to stop early.`,
		Args:          validateArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.shuffle, "shuffle", false, "Search documents in random order")
	cmd.Flags().BoolVar(&opts.sort, "sort", false, "Print a report sorted by path and page when the search ends")
	cmd.Flags().BoolVar(&opts.printLine, "printline", false, "Print every matching line when the search ends")
	cmd.Flags().BoolVar(&opts.printPath, "printpath", false, "Show each document's directory next to its name")
	cmd.Flags().BoolVar(&opts.follow, "follow", false, "Keep running and search documents as they are created or modified")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/pagegrep/config.yaml)")
	cmd.Flags().BoolVar(&opts.saveConfig, "save-config", false, "Write the resolved configuration to the config file before searching")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Number of scanner workers (default: CPUs minus reserve)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Write diagnostics to this file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf(err)
	})

	return cmd
}

// Execute runs the command against the process's standard streams.
func Execute() error {
	return NewRootCommand().Execute()
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
		return usageErrorf(err)
	}
	if _, target := splitArgs(args); target == "" {
		return usageErrorf(errors.New("search target must not be empty"))
	}
	return nil
}

func splitArgs(args []string) (root, target string) {
	if len(args) == 1 {
		return ".", args[0]
	}
	return args[0], args[1]
}

func runSearch(cmd *cobra.Command, opts *searchOptions, args []string) error {
	root, target := splitArgs(args)

	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return err
	}

	if opts.saveConfig {
		if err := saveConfig(cmd.OutOrStdout(), opts.configPath, cfg); err != nil {
			return err
		}
	}

	logger, closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}

	mux := source.Default()
	supports := func(path string) bool {
		ext := strings.ToLower(filepath.Ext(path))
		return mux.Supports(ext) && slices.Contains(cfg.Extensions, ext)
	}

	paths, err := files.Enumerate(absRoot, files.Options{
		Supports:     supports,
		Ignore:       cfg.Ignore,
		UseGitignore: cfg.GitignoreEnabled(),
		Shuffle:      opts.shuffle,
	})
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(sigCtx)
	defer cancel(nil)

	// The listener blocks on input and is never joined.
	in := cmd.InOrStdin()
	listener := abort.NewListener(cfg.AbortKeys, cancel)
	go listener.Listen(in)

	a := newApp(cmd.OutOrStdout(), opts, cfg, logger, mux, absRoot, target)
	if f, ok := in.(*os.File); ok && render.IsTerminal(f) {
		a.echoed = listener.Lines
	}

	logger.Info("enumerated documents",
		"root", absRoot,
		"documents", len(paths),
		"extensions", cfg.Extensions)

	if err := a.search(ctx, paths); err != nil {
		return err
	}
	if opts.follow && ctx.Err() == nil {
		return a.follow(ctx, supports)
	}
	return nil
}

// applyFlags overrides configuration values with explicitly set flags.
func applyFlags(cmd *cobra.Command, opts *searchOptions, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		if opts.workers < 1 {
			return usageErrorf(fmt.Errorf("--workers must be at least 1, got %d", opts.workers))
		}
		cfg.Workers = opts.workers
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.logFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
		if err := cfg.Validate(); err != nil {
			return usageErrorf(err)
		}
	}
	return nil
}

// saveConfig writes cfg to the --config path, or to the per-user location.
func saveConfig(out io.Writer, path string, cfg *config.Config) error {
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	path = fileutil.ExpandTilde(path)
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved configuration to %s\n", path)
	return nil
}

// displayOptions picks in-place or append-only rendering depending on
// whether out is a terminal. echoed counts input lines the terminal echoed.
func displayOptions(out io.Writer, cfg *config.Config, printPath bool, echoed func() int) render.Options {
	opts := render.Options{
		Interval:  time.Duration(cfg.RefreshMs) * time.Millisecond,
		PrintPath: printPath,
		Hint:      abortHint(cfg.AbortKeys),
		Echoed:    echoed,
	}
	if f, ok := out.(*os.File); ok && render.IsTerminal(f) {
		opts.Interactive = true
		opts.Width = render.TerminalWidth(f)
	}
	return opts
}

func abortHint(keys []string) string {
	if len(keys) == 0 {
		return "enter aborts"
	}
	return keys[0] + "+enter aborts"
}

func workerCount(cfg *config.Config) int {
	return cfg.WorkerCount(runtime.NumCPU())
}
