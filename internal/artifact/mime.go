package artifact

import "strings"

// PlaintextMIMEType maps the extension of a backend-generated text report to
// a MIME type. Unknown extensions are served as text/plain.
func PlaintextMIMEType(extension string) string {
	switch normalize(extension) {
	case "json":
		return "application/json"
	case "html":
		return "text/html"
	case "css":
		return "text/css"
	case "js":
		return "text/javascript"
	case "xml":
		return "application/xml"
	default:
		return "text/plain"
	}
}

// MIMEType maps a file extension for generic downloads, where unknown
// extensions are treated as opaque binary.
func MIMEType(extension string) string {
	switch normalize(extension) {
	case "pdf":
		return "application/pdf"
	case "txt":
		return "text/plain"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

func normalize(extension string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), "."))
}
