// Package ingest turns pasted text or uploaded files into session text.
package ingest

import (
	"context"
	"log/slog"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"essayreview/internal/logger"
)

const mimePDF = "application/pdf"

// File is an uploaded file held in memory.
type File struct {
	Name     string
	MIMEType string // Declared type; sniffed from Data when empty
	Data     []byte
}

// Source is either pasted text or a file.
type Source struct {
	text string
	file *File
}

// PlainText wraps pasted text.
func PlainText(s string) Source {
	return Source{text: s}
}

// FromFile wraps an uploaded file.
func FromFile(f File) Source {
	return Source{file: &f}
}

// IsPDF reports whether the source will take the PDF path.
func (s Source) IsPDF() bool {
	return s.file != nil && kind(s.file) == mimePDF
}

// Ingestor normalizes sources into text.
type Ingestor struct {
	open Opener
	log  *slog.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithOpener replaces the PDF parser.
func WithOpener(open Opener) Option {
	return func(i *Ingestor) { i.open = open }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Ingestor) { i.log = l }
}

// NewIngestor creates an Ingestor using ledongthuc/pdf for PDFs.
func NewIngestor(opts ...Option) *Ingestor {
	i := &Ingestor{open: OpenPDF}
	for _, opt := range opts {
		opt(i)
	}
	if i.log == nil {
		i.log = logger.WithComponent("ingest")
	}
	return i
}

// Ingest returns the normalized text for src. Plain text passes through,
// text files are decoded (UTF-8 or BOM-marked UTF-16), and PDFs are
// extracted page by page with progress reported before each page.
func (i *Ingestor) Ingest(ctx context.Context, src Source, progress ProgressFunc) (string, error) {
	if src.file == nil {
		return src.text, nil
	}

	f := src.file
	switch k := kind(f); {
	case k == mimePDF:
		return i.ingestPDF(ctx, f, progress)
	case strings.HasPrefix(k, "text/"):
		return decodeText(f.Data)
	default:
		i.log.Warn("unsupported upload", "name", f.Name, "mime", k)
		return "", &UnsupportedFileTypeError{Name: f.Name, MIMEType: k}
	}
}

func (i *Ingestor) ingestPDF(ctx context.Context, f *File, progress ProgressFunc) (string, error) {
	doc, err := i.open(f.Data)
	if err != nil {
		i.log.Warn("failed to open PDF", "name", f.Name, "error", err)
		return "", &UnreadablePdfError{Err: err}
	}

	text, err := ExtractText(ctx, doc, progress)
	if err != nil {
		i.log.Warn("failed to extract PDF text", "name", f.Name, "error", err)
		return "", err
	}
	i.log.Info("PDF ingested", "name", f.Name, "pages", doc.NumPages(), "chars", len(text))
	return text, nil
}

// kind returns the media type without parameters, sniffing when undeclared.
func kind(f *File) string {
	declared := f.MIMEType
	if declared == "" {
		declared = mimetype.Detect(f.Data).String()
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return mediaType
}

func decodeText(data []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
