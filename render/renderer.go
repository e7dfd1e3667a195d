package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pagegrep/pagegrep/search"
)

// DefaultInterval is the longest the renderer waits between redraws.
const DefaultInterval = 200 * time.Millisecond

// Source is the live view of a search that the renderer draws.
type Source interface {
	Records() []*search.DocumentResult
	Completed() int
	Total() int
	Updates() <-chan struct{}
}

type Options struct {
	// Interval bounds the wait between redraws when no update arrives.
	Interval time.Duration

	// Interactive enables in-place redraws and the progress line. When false
	// every record is printed exactly once, after it is finalized.
	Interactive bool

	// PrintPath appends the containing directory to each document name.
	PrintPath bool

	// Width reports the terminal width; it is sampled once per cycle.
	Width func() int

	// Hint is appended to the progress line.
	Hint string

	// Echoed reports how many input lines the terminal has echoed so far.
	// Each one pushed the live region down a row, so the next cycle erases
	// it as well. Nil means input is not echoed.
	Echoed func() int
}

// recordState is the renderer's bookkeeping for one store entry.
type recordState struct {
	rendered bool // final state is on screen and will not be redrawn
	rows     int  // wrapped rows printed for the record in the last cycle
}

// Renderer repaints the unfinalized tail of a search's results in place.
//
// Records before the watermark are finalized: their output is permanent and
// they are never visited again. Everything printed at or after the watermark,
// plus the progress line, is erased and reprinted on the next cycle. The number
// of rows erased always equals the number of live rows written by the previous
// cycle, measured in wrapped terminal rows.
//
// A Renderer is not safe for concurrent use; one goroutine owns it.
type Renderer struct {
	out  io.Writer
	opts Options

	watermark  int
	liveRows   int
	echoedSeen int
	states     []recordState

	nameStyle     lipgloss.Style
	dirStyle      lipgloss.Style
	progressStyle lipgloss.Style
}

func New(out io.Writer, opts Options) *Renderer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Width == nil {
		opts.Width = func() int { return DefaultWidth }
	}

	lr := lipgloss.NewRenderer(out)
	r := &Renderer{
		out:           out,
		opts:          opts,
		nameStyle:     lr.NewStyle().Bold(true),
		dirStyle:      lr.NewStyle().Faint(true),
		progressStyle: lr.NewStyle().Faint(true),
	}
	// Echoes from before this renderer drew anything are not in its region.
	if opts.Echoed != nil {
		r.echoedSeen = opts.Echoed()
	}
	return r
}

// Watermark returns the index of the first record that is not finalized.
func (r *Renderer) Watermark() int {
	return r.watermark
}

// LiveRows returns the number of rows the next cycle will erase.
func (r *Renderer) LiveRows() int {
	return r.liveRows
}

// Rendered reports whether the record at index i has been finalized or
// dismissed as vacuous.
func (r *Renderer) Rendered(i int) bool {
	return i < len(r.states) && r.states[i].rendered
}

// Run redraws until every document is completed and every record rendered,
// or until ctx is cancelled. It does not draw the final state after a
// cancellation; call Finish once the workers have stopped.
func (r *Renderer) Run(ctx context.Context, src Source) error {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for ctx.Err() == nil && !r.settled(src) {
		select {
		case <-ctx.Done():
			return nil
		case <-src.Updates():
		case <-ticker.C:
		}

		if err := r.Cycle(src); err != nil {
			return err
		}
	}
	return nil
}

// Finish draws one last cycle. Called after all workers have exited, it
// finalizes every record.
func (r *Renderer) Finish(src Source) error {
	return r.Cycle(src)
}

func (r *Renderer) settled(src Source) bool {
	// The completed count is read before the records: a document counted as
	// completed has already been appended to the store.
	if src.Completed() < src.Total() {
		return false
	}
	return r.watermark >= len(src.Records())
}

// Cycle performs one erase-and-redraw pass and writes it with a single Write.
func (r *Renderer) Cycle(src Source) error {
	completedFiles := src.Completed()
	records := src.Records()
	for len(r.states) < len(records) {
		r.states = append(r.states, recordState{})
	}
	width := r.opts.Width()
	if width <= 0 {
		width = DefaultWidth
	}

	var buf bytes.Buffer
	if r.opts.Interactive {
		for i := 0; i < r.liveRows+r.echoedRows(); i++ {
			buf.WriteString(cursorUp)
			buf.WriteString(clearLine)
		}
	}

	printed := 0
	prefixRendered := true
	for i := r.watermark; i < len(records); i++ {
		st := &r.states[i]
		if st.rendered {
			continue
		}

		rec := records[i]
		completed := rec.Completed()
		occ := rec.Occurrences()

		if len(occ) == 0 {
			if completed {
				st.rendered = true
				st.rows = 0
				continue
			}
			// Nothing to show yet; later records wait so the order stays stable.
			break
		}

		if completed && prefixRendered {
			st.rendered = true
		} else {
			prefixRendered = false
		}

		name, dir := r.identifier(rec.Path)
		pages := pagesLine(occ)

		st.rows = Rows(joinIdentifier(name, dir), width) + Rows(pages, width)
		if !r.opts.Interactive && !st.rendered {
			continue
		}

		buf.WriteString(r.nameStyle.Render(name))
		if dir != "" {
			buf.WriteString(" ")
			buf.WriteString(r.dirStyle.Render(dir))
		}
		buf.WriteString("\n")
		buf.WriteString(pages)
		buf.WriteString("\n")
		printed += st.rows
	}

	finalized := 0
	for r.watermark < len(records) && r.states[r.watermark].rendered {
		finalized += r.states[r.watermark].rows
		r.watermark++
	}

	if r.opts.Interactive {
		progress := r.progressLine(completedFiles, src.Total())
		buf.WriteString(r.progressStyle.Render(progress))
		buf.WriteString("\n")
		printed += Rows(progress, width)
		r.liveRows = printed - finalized
	}

	if buf.Len() == 0 {
		return nil
	}
	if _, err := r.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write display: %w", err)
	}
	return nil
}

// echoedRows returns the input rows echoed since the previous cycle.
func (r *Renderer) echoedRows() int {
	if r.opts.Echoed == nil {
		return 0
	}
	n := r.opts.Echoed()
	extra := n - r.echoedSeen
	r.echoedSeen = n
	return max(0, extra)
}

func (r *Renderer) identifier(path string) (name, dir string) {
	name = Sanitize(filepath.Base(path))
	if r.opts.PrintPath {
		dir = Sanitize(filepath.Dir(path))
	}
	return name, dir
}

func (r *Renderer) progressLine(completed, total int) string {
	pct := 100.0
	if total > 0 {
		pct = float64(completed) / float64(total) * 100
	}
	line := fmt.Sprintf("%5.1f%% (%d/%d documents)", pct, completed, total)
	if r.opts.Hint != "" {
		line += "  " + r.opts.Hint
	}
	return line
}

func joinIdentifier(name, dir string) string {
	if dir == "" {
		return name
	}
	return name + " " + dir
}

func pagesLine(occ []search.Occurrence) string {
	pages := search.Pages(occ)
	label := "pages"
	if len(pages) == 1 {
		label = "page"
	}
	return "  " + label + " " + search.FormatPages(pages)
}
