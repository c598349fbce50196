package section

import (
	"fmt"
	"regexp"
	"strings"
)

// headingRe matches numbered markdown headings in both common styles:
// "# 1. Title" (trailing period) and "## 3.1 Title" (no period).
var headingRe = regexp.MustCompile(`^(#{1,6})\s+(\d+(?:\.\d+)*)\.?\s+(.+)$`)

// Parse splits numbered markdown into top-level sections. Every descendant
// section (e.g. "3.1", "3.1.2") is merged into its top-level ancestor's
// content in document order, each preceded by a synthetic
// "## {number}. {title}" heading line. Content before the first numbered
// heading is dropped, as are headings without a numeric label. A document
// with no numbered headings yields an empty list.
func Parse(text string) []Section {
	lines := strings.Split(text, "\n")
	// A trailing newline yields one empty final element; drop it so the last
	// section's content and line count reflect the actual document.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	var all []Section
	var current *Section
	var content strings.Builder

	lineNum := 0
	for _, line := range lines {
		lineNum++
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			if current != nil {
				content.WriteString(line)
				content.WriteString("\n")
			}
			continue
		}
		if current != nil {
			current.Content = content.String()
			current.LineEnd = lineNum - 1
			all = append(all, *current)
			content.Reset()
		}
		number := m[2]
		current = &Section{
			Title:     strings.TrimSpace(m[3]),
			Level:     len(m[1]),
			LineStart: lineNum,
			Number:    number,
			Parent:    parentNumber(number),
		}
	}
	if current != nil {
		current.Content = content.String()
		current.LineEnd = lineNum
		all = append(all, *current)
	}

	// Populate each parent's direct-child list via a label index. When a
	// label repeats, the later section takes the index slot.
	index := make(map[string]int, len(all))
	for i, s := range all {
		index[s.Number] = i
	}
	for _, s := range all {
		if s.Parent == "" {
			continue
		}
		if pi, ok := index[s.Parent]; ok {
			all[pi].Subsections = append(all[pi].Subsections, s.Number)
		}
	}

	// Merge descendants into top-level sections by label prefix, preserving
	// document order. LineEnd extends to the furthest descendant.
	var topLevel []Section
	for _, s := range all {
		if strings.Contains(s.Number, ".") {
			continue
		}
		merged := s
		prefix := s.Number + "."
		var sb strings.Builder
		sb.WriteString(s.Content)
		for _, other := range all {
			if !strings.HasPrefix(other.Number, prefix) {
				continue
			}
			fmt.Fprintf(&sb, "\n## %s. %s\n\n", other.Number, other.Title)
			sb.WriteString(other.Content)
			if other.LineEnd > merged.LineEnd {
				merged.LineEnd = other.LineEnd
			}
		}
		merged.Content = sb.String()
		topLevel = append(topLevel, merged)
	}

	return topLevel
}

// parentNumber strips the last dot-component of a label: "3.1.2" -> "3.1".
// A label without a dot is top-level and has no parent.
func parentNumber(number string) string {
	i := strings.LastIndex(number, ".")
	if i < 0 {
		return ""
	}
	return number[:i]
}
