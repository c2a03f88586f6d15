package transcript

import (
	"fmt"
	"strings"
)

// SourceCount is the number of entries a source wrote.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Summary describes a parsed transcript.
type Summary struct {
	Entries   int           `json:"entries"`
	ToolCalls int           `json:"toolCalls"`
	Sources   []SourceCount `json:"sources"` // In order of first appearance
	Completed bool          `json:"completed"`
}

// Summarize counts entries per source. A transcript is complete when an
// entry reports that execution or compilation finished.
func Summarize(entries []Entry) Summary {
	s := Summary{Entries: len(entries)}
	index := map[string]int{}

	for _, e := range entries {
		if e.Source == "" {
			continue
		}
		if e.IsTool() {
			s.ToolCalls++
		}
		if i, ok := index[e.Source]; ok {
			s.Sources[i].Count++
		} else {
			index[e.Source] = len(s.Sources)
			s.Sources = append(s.Sources, SourceCount{Source: e.Source, Count: 1})
		}
		if strings.Contains(strings.ToLower(e.Message), "complete") {
			s.Completed = true
		}
	}
	return s
}

// String renders a one-line summary such as "5 entries, 2 tool calls".
func (s Summary) String() string {
	entries := "entries"
	if s.Entries == 1 {
		entries = "entry"
	}
	calls := "tool calls"
	if s.ToolCalls == 1 {
		calls = "tool call"
	}
	return fmt.Sprintf("%d %s, %d %s", s.Entries, entries, s.ToolCalls, calls)
}
