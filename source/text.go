package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// pageBreak separates pages in plain-text documents.
const pageBreak = "\f"

// TextOpener opens plain-text files. Pages are separated by form feeds; a file
// without any form feed is a single page. A UTF-16 or UTF-8 byte order mark is
// honoured, anything else is read as UTF-8.
type TextOpener struct{}

func (TextOpener) Open(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open text document: %w", err)
	}
	defer f.Close()

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(f, decoder))
	if err != nil {
		return nil, fmt.Errorf("failed to decode text document: %w", err)
	}

	return &textDocument{pages: strings.Split(string(data), pageBreak)}, nil
}

type textDocument struct {
	pages []string
}

func (d *textDocument) Pages() int {
	return len(d.pages)
}

func (d *textDocument) Page(n int) (string, error) {
	if n < 1 || n > len(d.pages) {
		return "", fmt.Errorf("page %d out of range (1-%d)", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

func (d *textDocument) Close() error {
	return nil
}
