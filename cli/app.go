package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pagegrep/pagegrep/abort"
	"github.com/pagegrep/pagegrep/config"
	"github.com/pagegrep/pagegrep/files"
	"github.com/pagegrep/pagegrep/internal/logging"
	"github.com/pagegrep/pagegrep/render"
	"github.com/pagegrep/pagegrep/report"
	"github.com/pagegrep/pagegrep/search"
	"github.com/pagegrep/pagegrep/source"
	"github.com/pagegrep/pagegrep/watcher"
)

// app wires one invocation's searches to the terminal.
type app struct {
	out    io.Writer
	opts   *searchOptions
	cfg    *config.Config
	logger *slog.Logger
	opener source.Opener
	root   string
	target string

	// echoed counts stdin lines echoed by the terminal; nil when stdin is
	// not a terminal.
	echoed func() int
}

func newApp(out io.Writer, opts *searchOptions, cfg *config.Config, logger *slog.Logger, opener source.Opener, root, target string) *app {
	return &app{
		out:    out,
		opts:   opts,
		cfg:    cfg,
		logger: logger,
		opener: opener,
		root:   root,
		target: target,
	}
}

// search runs one session over paths: workers and the renderer run
// concurrently, then the final cycle and the report are drawn once every
// worker has exited. Cancellation is not an error.
func (a *app) search(ctx context.Context, paths []string) error {
	start := time.Now()
	sess := search.NewSession(paths, a.target, a.opener,
		search.WithLogger(logging.WithComponent(a.logger, "search")))
	r := render.New(a.out, displayOptions(a.out, a.cfg, a.opts.printPath, a.echoed))

	renderDone := make(chan error, 1)
	go func() {
		renderDone <- r.Run(ctx, sess)
	}()

	if err := sess.Run(ctx, workerCount(a.cfg)); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if err := <-renderDone; err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}
	if err := r.Finish(sess); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}

	records := sess.Records()
	summary := report.Summarize(records, sess.Completed(), sess.Total(), ctx.Err() != nil)
	summary.Elapsed = time.Since(start)

	a.logger.Info("run summary",
		"run", sess.ID(),
		"documents", summary.Documents,
		"matched", summary.Matched,
		"matches", summary.Matches,
		"aborted", summary.Aborted,
		"user_abort", abort.Aborted(ctx),
		"elapsed", summary.Elapsed)

	f := report.NewFinalizer(a.out, report.Options{
		Sort:       a.opts.sort,
		PrintLines: a.opts.printLine,
		Root:       a.root,
		Target:     a.target,
	})
	return f.Write(records, summary)
}

// follow searches documents created or modified under the root until ctx is
// cancelled.
func (a *app) follow(ctx context.Context, supports func(string) bool) error {
	ignore, err := files.NewIgnoreMatcher(a.root, a.cfg.Ignore, a.cfg.GitignoreEnabled())
	if err != nil {
		return fmt.Errorf("failed to load ignore rules: %w", err)
	}

	debounce := time.Duration(a.cfg.FollowDebounceMs) * time.Millisecond
	w, err := watcher.NewWatcher(a.root, ignore, supports, debounce, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	fmt.Fprintf(a.out, "Watching %s for changes (%s)\n", a.root, abortHint(a.cfg.AbortKeys))

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-w.Batches():
			a.logger.Info("documents changed", "documents", len(batch))
			if err := a.search(ctx, batch); err != nil {
				return err
			}
		}
	}
}
