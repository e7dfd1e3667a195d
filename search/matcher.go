package search

import (
	"strings"

	"golang.org/x/text/cases"
)

// matcher performs case-insensitive substring tests using Unicode case folding.
// A matcher holds a stateful cases.Caser and must not be shared between goroutines.
type matcher struct {
	fold   cases.Caser
	target string
}

func newMatcher(target string) *matcher {
	fold := cases.Fold()
	return &matcher{
		fold:   fold,
		target: fold.String(target),
	}
}

func (m *matcher) Match(line string) bool {
	return strings.Contains(m.fold.String(line), m.target)
}
