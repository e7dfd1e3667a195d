package source

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// lineTolerance is the largest baseline difference, in text space units,
// between runs printed on the same line.
const lineTolerance = 0.5

// PDFOpener extracts page text with github.com/ledongthuc/pdf.
type PDFOpener struct{}

func (PDFOpener) Open(path string) (doc Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	// The parser panics on some malformed files instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			f.Close()
			doc = nil
			err = fmt.Errorf("failed to parse pdf %s: %v", path, r)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	return &pdfDocument{file: f, reader: r}, nil
}

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func (d *pdfDocument) Pages() int {
	return d.reader.NumPage()
}

// Page rebuilds the page's lines from its positioned text runs. Runs are
// ordered top to bottom then left to right, and a new line starts whenever
// the baseline moves.
func (d *pdfDocument) Page(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("failed to extract page %d: %v", n, r)
		}
	}()

	if n < 1 || n > d.reader.NumPage() {
		return "", fmt.Errorf("page %d out of range (1-%d)", n, d.reader.NumPage())
	}

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return joinRuns(page.Content().Text), nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

// joinRuns lays text runs out as lines. Runs sharing a baseline keep their
// content-stream order when their x positions tie.
func joinRuns(runs []pdf.Text) string {
	if len(runs) == 0 {
		return ""
	}
	runs = append([]pdf.Text(nil), runs...)
	sort.SliceStable(runs, func(i, j int) bool {
		if math.Abs(runs[i].Y-runs[j].Y) > lineTolerance {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var b strings.Builder
	lineY := runs[0].Y
	for i, t := range runs {
		if i > 0 && math.Abs(t.Y-lineY) > lineTolerance {
			b.WriteByte('\n')
			lineY = t.Y
		}
		b.WriteString(t.S)
	}
	return b.String()
}
