package search

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// Occurrence is a single matching line within a document.
type Occurrence struct {
	Page int    // 1-based page number
	Line int    // 1-based line number within the page
	Text string // the matching line
}

// DocumentResult accumulates the occurrences found in one document.
//
// A record has exactly one writer, the worker that opened the document, until
// Complete is called. Readers on other goroutines see a consistent prefix of
// the occurrences: every Append publishes a new slice header with release
// semantics and Occurrences loads it with acquire semantics. Elements below a
// published length are never written again, so a reader may keep the slice it
// loaded. Completion is published after the last Append, therefore a reader
// that needs both values must call Completed before Occurrences.
type DocumentResult struct {
	Path string

	occurrences atomic.Pointer[[]Occurrence]
	completed   atomic.Bool
}

func NewDocumentResult(path string) *DocumentResult {
	return &DocumentResult{Path: path}
}

// Append adds an occurrence. Only the owning worker may call it, and never after Complete.
func (r *DocumentResult) Append(o Occurrence) {
	var next []Occurrence
	if cur := r.occurrences.Load(); cur != nil {
		next = append(*cur, o)
	} else {
		next = []Occurrence{o}
	}
	r.occurrences.Store(&next)
}

// Complete marks the scanning phase as finished. Only the owning worker may call it.
func (r *DocumentResult) Complete() {
	r.completed.Store(true)
}

func (r *DocumentResult) Completed() bool {
	return r.completed.Load()
}

// Occurrences returns the occurrences published so far, in discovery order.
// The returned slice must not be modified.
func (r *DocumentResult) Occurrences() []Occurrence {
	if p := r.occurrences.Load(); p != nil {
		return *p
	}
	return nil
}

// Pages returns the sorted, de-duplicated page numbers of the given occurrences.
func Pages(occ []Occurrence) []int {
	pages := make([]int, 0, len(occ))
	for _, o := range occ {
		pages = append(pages, o.Page)
	}
	sort.Ints(pages)

	out := pages[:0]
	for i, p := range pages {
		if i == 0 || p != pages[i-1] {
			out = append(out, p)
		}
	}
	return out
}

// FormatPages joins page numbers with ", ".
func FormatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
