package source

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/ledongthuc/pdf"
)

// buildPDF returns a minimal PDF with one page per entry. Each line is placed
// with its own Td operator, 14 units below the previous one.
func buildPDF(pages ...[]string) []byte {
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, lines := range pages {
		var content bytes.Buffer
		content.WriteString("BT /F1 12 Tf 72 720 Td")
		for j, line := range lines {
			if j > 0 {
				content.WriteString(" 0 -14 Td")
			}
			fmt.Fprintf(&content, " (%s) Tj", line)
		}
		content.WriteString(" ET")

		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFOpener_SplitsLinesByPosition(t *testing.T) {
	data := buildPDF(
		[]string{"first line", "second line", "say hello"},
		[]string{"hello again"},
	)
	path := writeFile(t, t.TempDir(), "doc.pdf", data)

	doc, err := PDFOpener{}.Open(path)
	if err != nil {
		t.Fatalf("failed to open pdf: %v", err)
	}
	defer doc.Close()

	if doc.Pages() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.Pages())
	}

	tests := []struct {
		page int
		want string
	}{
		{1, "first line\nsecond line\nsay hello"},
		{2, "hello again"},
	}
	for _, tt := range tests {
		got, err := doc.Page(tt.page)
		if err != nil {
			t.Fatalf("page %d: unexpected error: %v", tt.page, err)
		}
		if got != tt.want {
			t.Errorf("page %d = %q, want %q", tt.page, got, tt.want)
		}
	}

	if _, err := doc.Page(3); err == nil {
		t.Error("expected error for page out of range")
	}
}

func openFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd on this platform")
	}
	return len(entries)
}

func TestPDFOpener_ClosesFileOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	inputs := map[string][]byte{
		"bad-xref.pdf":   []byte("%PDF-1.4\nstartxref\n9\n%%EOF\n"),
		"truncated.pdf":  buildPDF([]string{"hello"})[:60],
		"no-trailer.pdf": []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n"),
	}

	before := openFDs(t)
	for name, data := range inputs {
		path := writeFile(t, dir, name, data)
		for i := 0; i < 10; i++ {
			doc, err := PDFOpener{}.Open(path)
			if err == nil {
				doc.Close()
				t.Fatalf("%s: expected an error", name)
			}
		}
	}
	if after := openFDs(t); after > before {
		t.Errorf("file descriptors leaked: %d before, %d after", before, after)
	}
}

func TestJoinRuns(t *testing.T) {
	tests := []struct {
		name string
		runs []pdf.Text
		want string
	}{
		{
			name: "empty",
			runs: nil,
			want: "",
		},
		{
			name: "orders top to bottom and left to right",
			runs: []pdf.Text{
				{X: 72, Y: 700, S: "c"},
				{X: 80, Y: 720, S: "b"},
				{X: 72, Y: 720, S: "a"},
			},
			want: "ab\nc",
		},
		{
			name: "keeps stream order on tied x",
			runs: []pdf.Text{
				{X: 72, Y: 720, S: "h"},
				{X: 72, Y: 720, S: "i"},
			},
			want: "hi",
		},
		{
			name: "small baseline jitter stays on the line",
			runs: []pdf.Text{
				{X: 72, Y: 720, S: "x"},
				{X: 78, Y: 720.2, S: "y"},
			},
			want: "xy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinRuns(tt.runs); got != tt.want {
				t.Errorf("joinRuns() = %q, want %q", got, tt.want)
			}
		})
	}
}
