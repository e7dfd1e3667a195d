package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned by Mux.Open when no opener is registered for a path's extension.
var ErrUnsupported = errors.New("unsupported document type")

// Document is an opened document whose text can be read page by page.
type Document interface {
	// Pages returns the number of pages in the document.
	Pages() int

	// Page returns the plain text of page n (1-based).
	Page(n int) (string, error)

	// Close releases the underlying file.
	Close() error
}

// Opener opens documents of a given kind.
type Opener interface {
	Open(path string) (Document, error)
}

// Mux dispatches Open calls to an Opener chosen by file extension.
// It is safe for concurrent use once registration is finished.
type Mux struct {
	openers map[string]Opener
}

func NewMux() *Mux {
	return &Mux{openers: make(map[string]Opener)}
}

// Default returns a Mux with the PDF and plain-text openers registered.
func Default() *Mux {
	m := NewMux()
	m.Register(".pdf", PDFOpener{})
	m.Register(".txt", TextOpener{})
	m.Register(".text", TextOpener{})
	return m
}

// Register binds an extension (with or without the leading dot) to an opener.
func (m *Mux) Register(ext string, o Opener) {
	m.openers[normalizeExt(ext)] = o
}

// Supports reports whether an opener is registered for the extension.
func (m *Mux) Supports(ext string) bool {
	_, ok := m.openers[normalizeExt(ext)]
	return ok
}

func (m *Mux) Open(path string) (Document, error) {
	o, ok := m.openers[normalizeExt(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	return o.Open(path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
