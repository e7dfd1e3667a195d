package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pagegrep/pagegrep/render"
	"github.com/pagegrep/pagegrep/search"
)

type Options struct {
	// Sort orders the report by path, first page and first line instead of
	// discovery order.
	Sort bool

	// PrintLines lists every matching line below its document.
	PrintLines bool

	// Root names the search in the no-match message. Report entries are
	// shown relative to it.
	Root   string
	Target string
}

// Summary describes a finished run.
type Summary struct {
	Documents int // documents enumerated
	Completed int // documents processed, including unreadable ones
	Records   int // documents opened
	Matched   int // documents with at least one match
	Matches   int // matching lines across all documents
	Aborted   bool
	Elapsed   time.Duration
}

// Entry is a read-only snapshot of one non-vacuous record.
type Entry struct {
	Path        string
	Occurrences []search.Occurrence
}

// Snapshot copies the records that have at least one occurrence, keeping
// store order. It only reads the records.
func Snapshot(records []*search.DocumentResult) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		occ := r.Occurrences()
		if len(occ) == 0 {
			continue
		}
		entries = append(entries, Entry{Path: r.Path, Occurrences: occ})
	}
	return entries
}

// SortEntries orders entries by path, then lowest page, then the lowest line
// on that page.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Occurrences[0].Page != b.Occurrences[0].Page {
			return a.Occurrences[0].Page < b.Occurrences[0].Page
		}
		return a.Occurrences[0].Line < b.Occurrences[0].Line
	})
}

// Summarize counts the results of a run.
func Summarize(records []*search.DocumentResult, completed, total int, aborted bool) Summary {
	s := Summary{
		Documents: total,
		Completed: completed,
		Records:   len(records),
		Aborted:   aborted,
	}
	for _, r := range records {
		if n := len(r.Occurrences()); n > 0 {
			s.Matched++
			s.Matches += n
		}
	}
	return s
}

// Finalizer prints the end-of-run report.
type Finalizer struct {
	out  io.Writer
	opts Options

	headingStyle lipgloss.Style
	nameStyle    lipgloss.Style
	dirStyle     lipgloss.Style
	lineStyle    lipgloss.Style
}

func NewFinalizer(out io.Writer, opts Options) *Finalizer {
	lr := lipgloss.NewRenderer(out)
	return &Finalizer{
		out:          out,
		opts:         opts,
		headingStyle: lr.NewStyle().Bold(true).Underline(true),
		nameStyle:    lr.NewStyle().Bold(true),
		dirStyle:     lr.NewStyle().Faint(true),
		lineStyle:    lr.NewStyle().Faint(true),
	}
}

// Write prints the optional detailed report, the no-match message when
// nothing matched, and the run summary.
func (f *Finalizer) Write(records []*search.DocumentResult, sum Summary) error {
	var buf bytes.Buffer

	entries := Snapshot(records)
	if len(entries) == 0 {
		fmt.Fprintf(&buf, "No documents containing %q found in %s\n", f.opts.Target, f.opts.Root)
	} else if f.opts.Sort || f.opts.PrintLines {
		if f.opts.Sort {
			SortEntries(entries)
		}
		buf.WriteString("\n")
		buf.WriteString(f.headingStyle.Render("Final matching results:"))
		buf.WriteString("\n")
		for _, e := range entries {
			f.writeEntry(&buf, e)
		}
	}

	buf.WriteString(summaryLine(sum))
	buf.WriteString("\n")

	if _, err := f.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (f *Finalizer) writeEntry(buf *bytes.Buffer, e Entry) {
	dir, name := filepath.Split(f.displayPath(e.Path))
	if dir != "" {
		buf.WriteString(f.dirStyle.Render(render.Sanitize(dir)))
	}
	buf.WriteString(f.nameStyle.Render(render.Sanitize(name)))
	pages := search.Pages(e.Occurrences)
	label := "pages"
	if len(pages) == 1 {
		label = "page"
	}
	fmt.Fprintf(buf, ": %s %s\n", label, search.FormatPages(pages))

	if !f.opts.PrintLines {
		return
	}
	for _, o := range e.Occurrences {
		loc := fmt.Sprintf("  page %d, line %d:", o.Page, o.Line)
		buf.WriteString(f.lineStyle.Render(loc))
		buf.WriteString(" ")
		buf.WriteString(render.Sanitize(o.Text))
		buf.WriteString("\n")
	}
}

// displayPath returns path relative to the root, or path itself when it does
// not lie under the root.
func (f *Finalizer) displayPath(path string) string {
	if f.opts.Root == "" {
		return path
	}
	rel, err := filepath.Rel(f.opts.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func summaryLine(s Summary) string {
	state := "Search complete"
	if s.Aborted {
		state = "Search aborted"
	}
	line := fmt.Sprintf("%s: %d of %d documents scanned, %d matched (%d %s)",
		state, s.Completed, s.Documents, s.Matched, s.Matches, plural(s.Matches, "match", "matches"))
	if s.Elapsed > 0 {
		line += fmt.Sprintf(" in %s", s.Elapsed.Round(time.Millisecond))
	}
	return line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
