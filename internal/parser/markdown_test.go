package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Reporting Standards

Intro text.

## Statistics

Describe every test used.

### Effect Sizes

Report effect sizes with confidence intervals.

## Reproducibility

State random seeds.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "standards.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "standards" {
		t.Errorf("expected title %q, got %q", "standards", doc.Title)
	}
	if doc.Source != "standards.md" {
		t.Errorf("expected source %q, got %q", "standards.md", doc.Source)
	}

	if len(doc.Children) != 1 {
		t.Fatalf("expected 1 top-level child (h1), got %d", len(doc.Children))
	}

	h1 := doc.Children[0]
	if h1.Title != "Reporting Standards" {
		t.Errorf("expected h1 title %q, got %q", "Reporting Standards", h1.Title)
	}
	if h1.Text != "Intro text." {
		t.Errorf("expected h1 text %q, got %q", "Intro text.", h1.Text)
	}

	if len(h1.Children) != 2 {
		t.Fatalf("expected 2 h2 children, got %d", len(h1.Children))
	}

	stats := h1.Children[0]
	if stats.Title != "Statistics" {
		t.Errorf("expected %q, got %q", "Statistics", stats.Title)
	}
	if stats.Text != "Describe every test used." {
		t.Errorf("expected statistics text %q, got %q", "Describe every test used.", stats.Text)
	}

	if len(stats.Children) != 1 {
		t.Fatalf("expected 1 h3 child under Statistics, got %d", len(stats.Children))
	}
	if stats.Children[0].Title != "Effect Sizes" {
		t.Errorf("expected %q, got %q", "Effect Sizes", stats.Children[0].Title)
	}

	if h1.Children[1].Title != "Reproducibility" {
		t.Errorf("expected %q, got %q", "Reproducibility", h1.Children[1].Title)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No headings: all text collects into a single child node.
	if len(doc.Children) != 1 {
		t.Fatalf("expected 1 child for headingless markdown, got %d", len(doc.Children))
	}

	want := "Just some plain text.\n\nAnother paragraph here."
	if doc.Children[0].Text != want {
		t.Errorf("expected text %q, got %q", want, doc.Children[0].Text)
	}
}

func TestMarkdownParser_PreambleBeforeFirstHeading(t *testing.T) {
	input := `Version 2 of the checklist.

# Checklist

First item.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "checklist.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Children) != 2 {
		t.Fatalf("expected preamble node plus heading node, got %d children", len(doc.Children))
	}
	if doc.Children[0].Title != "" || doc.Children[0].Text != "Version 2 of the checklist." {
		t.Errorf("unexpected preamble node: %+v", doc.Children[0])
	}
	if doc.Children[1].Title != "Checklist" {
		t.Errorf("expected heading node %q, got %q", "Checklist", doc.Children[1].Title)
	}
}

func TestMarkdownParser_CodeBlocksKept(t *testing.T) {
	input := "# Protocol\n\nSome intro.\n\n## Commands\n\nRun these:\n\n```\nfit --seed 42\nfit --seed 43\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "protocol.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Children) != 1 {
		t.Fatalf("expected 1 top-level child, got %d", len(doc.Children))
	}
	h1 := doc.Children[0]
	if len(h1.Children) != 1 {
		t.Fatalf("expected 1 h2 child, got %d", len(h1.Children))
	}

	commands := h1.Children[0]
	if !strings.Contains(commands.Text, "fit --seed 42") {
		t.Errorf("expected code block content in text, got %q", commands.Text)
	}
	if !strings.Contains(commands.Text, "More text after code.") {
		t.Errorf("expected post-code text, got %q", commands.Text)
	}
	// Prose paragraphs must appear exactly once.
	if strings.Count(commands.Text, "Run these:") != 1 {
		t.Errorf("paragraph text duplicated: %q", commands.Text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Children) != 0 {
		t.Errorf("expected 0 children for empty input, got %d", len(doc.Children))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		doc, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if doc.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, doc.Title)
		}
	}
}
