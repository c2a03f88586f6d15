// Package transcript splits the backend's processing log into tagged entries.
package transcript

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Entry is one log record. Lines without a tag are folded into the
// preceding entry's Message.
type Entry struct {
	Source  string `json:"source"` // e.g. "APPLICATION", "NOTE LEAVER TOOL"; empty for untagged preamble
	Message string `json:"message"`
	Line    int    `json:"line"` // 1-based line where the entry starts
}

// IsTool reports whether the entry was written by a tool.
func (e Entry) IsTool() bool {
	return strings.HasSuffix(e.Source, "TOOL")
}

// Parser handles the parsing of transcript text.
type Parser struct {
	re *regexp.Regexp
}

// NewParser creates a Parser for "[SOURCE] : message" lines.
func NewParser() *Parser {
	// Matches:
	// [APPLICATION] : Beginning agentic execution...
	// [SYSTEM] Compilation complete.
	return &Parser{
		re: regexp.MustCompile(`^\s*\[([^\]]+)\]\s*:?\s?(.*)$`),
	}
}

// Parse reads the transcript stream and returns a channel of entries.
// It runs asynchronously.
func (p *Parser) Parse(r io.Reader) (chan Entry, chan error) {
	entries := make(chan Entry)
	errs := make(chan error, 1) // Buffered to avoid blocking if receiver stops

	go func() {
		defer close(entries)
		defer close(errs)

		scanner := bufio.NewScanner(r)
		// Tool output can carry whole paragraphs on one line
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 10*1024*1024)

		var cur *Entry
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := strings.TrimRight(scanner.Text(), "\r")

			if m := p.re.FindStringSubmatch(line); m != nil {
				if cur != nil {
					cur.Message = strings.TrimRight(cur.Message, "\n")
					entries <- *cur
				}
				cur = &Entry{Source: strings.TrimSpace(m[1]), Message: m[2], Line: lineNum}
				continue
			}

			if cur == nil {
				if strings.TrimSpace(line) == "" {
					continue
				}
				cur = &Entry{Message: line, Line: lineNum}
				continue
			}
			cur.Message += "\n" + line
		}
		if cur != nil {
			cur.Message = strings.TrimRight(cur.Message, "\n")
			entries <- *cur
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()

	return entries, errs
}

// ParseString collects every entry of text.
func ParseString(text string) ([]Entry, error) {
	entries, errs := NewParser().Parse(strings.NewReader(text))

	var out []Entry
	for e := range entries {
		out = append(out, e)
	}
	return out, <-errs
}
