package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestTextOpener_SplitsPagesOnFormFeed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.txt", []byte("one\ntwo\fthree\f\ffive"))

	doc, err := TextOpener{}.Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer doc.Close()

	if doc.Pages() != 4 {
		t.Fatalf("expected 4 pages, got %d", doc.Pages())
	}

	tests := []struct {
		page int
		want string
	}{
		{1, "one\ntwo"},
		{2, "three"},
		{3, ""},
		{4, "five"},
	}
	for _, tt := range tests {
		got, err := doc.Page(tt.page)
		if err != nil {
			t.Errorf("page %d: unexpected error: %v", tt.page, err)
			continue
		}
		if got != tt.want {
			t.Errorf("page %d = %q, want %q", tt.page, got, tt.want)
		}
	}
}

func TestTextOpener_PageOutOfRange(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.txt", []byte("only page"))

	doc, err := TextOpener{}.Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}

	if _, err := doc.Page(0); err == nil {
		t.Error("expected error for page 0")
	}
	if _, err := doc.Page(2); err == nil {
		t.Error("expected error for page 2")
	}
}

func TestTextOpener_DecodesUTF16WithBOM(t *testing.T) {
	// "Hi" in UTF-16LE with BOM
	data := []byte{0xFF, 0xFE, 'H', 0x00, 'i', 0x00}
	path := writeFile(t, t.TempDir(), "utf16.txt", data)

	doc, err := TextOpener{}.Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}

	got, err := doc.Page(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hi" {
		t.Errorf("expected %q, got %q", "Hi", got)
	}
}

func TestTextOpener_MissingFile(t *testing.T) {
	_, err := TextOpener{}.Open(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMux_DispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "UPPER.TXT", []byte("content"))

	m := Default()
	doc, err := m.Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	if doc.Pages() != 1 {
		t.Errorf("expected 1 page, got %d", doc.Pages())
	}

	_, err = m.Open(filepath.Join(dir, "image.png"))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

type recordingOpener struct {
	called *bool
}

func (o recordingOpener) Open(path string) (Document, error) {
	*o.called = true
	return &textDocument{pages: []string{""}}, nil
}

func TestMux_RegisterNormalizesExtension(t *testing.T) {
	m := NewMux()
	called := false
	m.Register("MD", recordingOpener{called: &called})

	if !m.Supports(".md") {
		t.Error("expected .md to be supported")
	}
	if _, err := m.Open("notes.md"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected registered opener to be called")
	}
}

func TestPDFOpener_RejectsNonPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", []byte("this is not a pdf"))

	doc, err := PDFOpener{}.Open(path)
	if err == nil {
		doc.Close()
		t.Fatal("expected error opening a non-pdf file")
	}
}
