package ingest

import "fmt"

// UnreadablePdfMessage replaces the session text when a PDF cannot be read.
const UnreadablePdfMessage = "Error reading PDF file. Please ensure it is a valid, text-based PDF."

// UnsupportedFileTypeError is returned for files that are neither text nor PDF.
type UnsupportedFileTypeError struct {
	Name     string
	MIMEType string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q for %s: please upload a PDF or text file", e.MIMEType, e.Name)
}

// UnreadablePdfError is returned when the document or one of its pages fails
// to parse. Page is 0 when the document itself could not be opened.
type UnreadablePdfError struct {
	Page int
	Err  error
}

func (e *UnreadablePdfError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("unreadable PDF: %v", e.Err)
	}
	return fmt.Sprintf("unreadable PDF page %d: %v", e.Page, e.Err)
}

func (e *UnreadablePdfError) Unwrap() error {
	return e.Err
}
