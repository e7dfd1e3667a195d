package search

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pagegrep/pagegrep/source"
	"golang.org/x/sync/errgroup"
)

// Session is one search over a fixed list of documents.
type Session struct {
	id      string
	files   []string
	target  string
	opener  source.Opener
	logger  *slog.Logger
	dist    *Distributor
	store   *Store
	updates chan struct{}
	done    chan struct{}

	completed atomic.Int64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the diagnostics logger. The default discards everything.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession prepares a search for target over files. The file list is used
// as-is; it must not change afterwards.
func NewSession(files []string, target string, opener source.Opener, opts ...SessionOption) *Session {
	s := &Session{
		id:      uuid.NewString(),
		files:   files,
		target:  target,
		opener:  opener,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		dist:    NewDistributor(len(files)),
		store:   NewStore(),
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "search", "run", s.id)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Store() *Store {
	return s.store
}

// Records returns the store's records in open-completion order.
func (s *Session) Records() []*DocumentResult {
	return s.store.Records()
}

func (s *Session) Total() int {
	return len(s.files)
}

// Completed returns the number of documents fully processed, including those
// that failed to open.
func (s *Session) Completed() int {
	return int(s.completed.Load())
}

// Updates delivers a coalesced notification whenever new results or
// completions may be visible. Missed notifications are not replayed.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run scans all documents with the given number of workers and blocks until
// every worker has exited. Cancelling ctx stops workers before their next
// document or page; documents already open are still marked complete.
func (s *Session) Run(ctx context.Context, workers int) error {
	defer close(s.done)

	if workers < 1 {
		workers = 1
	}

	s.logger.Info("search started",
		"target", s.target,
		"documents", len(s.files),
		"workers", workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		id := i
		g.Go(func() error {
			s.work(ctx, id)
			return nil
		})
	}
	err := g.Wait()

	s.logger.Info("search finished",
		"completed", s.Completed(),
		"records", s.store.Len(),
		"cancelled", ctx.Err() != nil)
	s.notify()
	return err
}

func (s *Session) work(ctx context.Context, id int) {
	m := newMatcher(s.target)
	logger := s.logger.With("worker", id)

	for ctx.Err() == nil {
		idx, ok := s.dist.Next()
		if !ok {
			return
		}
		path := s.files[idx]

		doc, err := s.opener.Open(path)
		if err != nil {
			logger.Warn("failed to open document", "path", path, "error", err)
			s.completed.Add(1)
			s.notify()
			continue
		}

		rec := NewDocumentResult(path)
		s.store.Append(rec)
		s.scan(ctx, logger, m, doc, rec)

		if err := doc.Close(); err != nil {
			logger.Debug("failed to close document", "path", path, "error", err)
		}
		rec.Complete()
		s.completed.Add(1)
		s.notify()
	}
}

func (s *Session) scan(ctx context.Context, logger *slog.Logger, m *matcher, doc source.Document, rec *DocumentResult) {
	pages := doc.Pages()
	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			logger.Debug("scan interrupted", "path", rec.Path, "page", page, "pages", pages)
			return
		}

		text, err := doc.Page(page)
		if err != nil {
			logger.Warn("failed to extract page", "path", rec.Path, "page", page, "error", err)
			continue
		}

		for i, line := range splitLines(text) {
			if m.Match(line) {
				rec.Append(Occurrence{Page: page, Line: i + 1, Text: line})
				s.notify()
			}
		}
	}
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// splitLines splits page text into lines. A trailing newline does not start
// an extra line and carriage returns before newlines are dropped.
func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
