package render

import (
	"os"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	// DefaultWidth is used when the terminal size cannot be determined.
	DefaultWidth = 80

	cursorUp  = "\x1b[1A"
	clearLine = "\x1b[2K"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns a width source that queries f's terminal on every
// call and falls back to DefaultWidth.
func TerminalWidth(f *os.File) func() int {
	fd := int(f.Fd())
	return func() int {
		w, _, err := term.GetSize(fd)
		if err != nil || w <= 0 {
			return DefaultWidth
		}
		return w
	}
}

// Rows returns the number of terminal rows a single line occupies when
// printed on a terminal of the given width with auto-wrap enabled.
func Rows(line string, width int) int {
	if width <= 0 {
		width = DefaultWidth
	}
	w := runewidth.StringWidth(line)
	if w <= width {
		return 1
	}
	return (w + width - 1) / width
}

// Sanitize replaces control characters so that every printed rune advances the
// cursor the way runewidth measures it.
func Sanitize(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '?'
		}
		return r
	}, s)
}
