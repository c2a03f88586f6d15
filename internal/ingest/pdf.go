package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is a paginated source of text fragments. Pages are 1-based.
type Document interface {
	NumPages() int
	PageFragments(page int) ([]string, error)
}

// Opener parses raw PDF bytes into a Document.
type Opener func(data []byte) (Document, error)

// Progress reports which page is being extracted.
type Progress struct {
	Page  int `json:"page"`
	Total int `json:"total"`
}

func (p Progress) String() string {
	return fmt.Sprintf("Reading PDF page %d of %d...", p.Page, p.Total)
}

// ProgressFunc observes extraction progress. It may be nil.
type ProgressFunc func(Progress)

// ExtractText walks pages 1..N strictly in order. Fragments within a page are
// joined with a single space and pages are separated by a blank line. The
// first failing page aborts the whole extraction; no partial text is returned.
func ExtractText(ctx context.Context, doc Document, progress ProgressFunc) (string, error) {
	total := doc.NumPages()
	pages := make([]string, 0, total)

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if progress != nil {
			progress(Progress{Page: i, Total: total})
		}

		fragments, err := doc.PageFragments(i)
		if err != nil {
			return "", &UnreadablePdfError{Page: i, Err: err}
		}
		pages = append(pages, strings.Join(fragments, " "))
	}

	return strings.Join(pages, "\n\n"), nil
}

// pdfDocument adapts ledongthuc/pdf. Each text row of a page is one fragment.
type pdfDocument struct {
	r *pdf.Reader
}

// OpenPDF is the default Opener.
func OpenPDF(data []byte) (doc Document, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pdfDocument{r: r}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.r.NumPage()
}

func (d *pdfDocument) PageFragments(n int) (fragments []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			fragments, err = nil, fmt.Errorf("malformed page content: %v", r)
		}
	}()

	page := d.r.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", n)
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		var b strings.Builder
		for _, text := range row.Content {
			b.WriteString(text.S)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			fragments = append(fragments, s)
		}
	}
	return fragments, nil
}
