package section

import (
	"fmt"
	"strings"
)

// Section is a contiguous, titled unit of document content addressable by a
// dotted numeric label such as "3" or "3.1.2". Top-level sections returned
// by Parse carry all descendant content merged into Content.
type Section struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Level       int      `json:"level"`
	LineStart   int      `json:"line_start"`
	LineEnd     int      `json:"line_end"`
	Number      string   `json:"section_number,omitempty"`
	Parent      string   `json:"parent_section,omitempty"`
	Subsections []string `json:"subsections,omitempty"`
}

// truncationMarker is appended when section content is cut to fit a token budget.
const truncationMarker = "\n\n... [content truncated for length]"

// EstimateTokens gives a rough token count for a section's content using the
// ~4 chars/token heuristic. Exact tokenization is not required here.
func EstimateTokens(s Section) int {
	return len(s.Content) / 4
}

// Truncate returns the section unchanged when its content fits within
// maxTokens, otherwise a copy holding the first maxTokens*4 characters plus
// a truncation marker. Title, level, and line bounds are preserved.
func Truncate(s Section, maxTokens int) Section {
	if maxTokens < 0 {
		maxTokens = 0
	}
	if EstimateTokens(s) <= maxTokens {
		return s
	}
	maxChars := maxTokens * 4
	return Section{
		Title:     s.Title,
		Content:   s.Content[:maxChars] + truncationMarker,
		Level:     s.Level,
		LineStart: s.LineStart,
		LineEnd:   s.LineEnd,
	}
}

// Summarize renders an indented outline of the given sections, one numbered
// line per section, indented by heading level.
func Summarize(sections []Section) string {
	lines := make([]string, 0, len(sections))
	for i, s := range sections {
		indent := ""
		if s.Level > 1 {
			indent = strings.Repeat("  ", s.Level-1)
		}
		lines = append(lines, fmt.Sprintf("%s%d. %s", indent, i+1, s.Title))
	}
	return strings.Join(lines, "\n")
}
