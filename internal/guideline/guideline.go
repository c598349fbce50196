package guideline

import "fmt"

// DocType tags a guideline document with the review dimension it supports.
// Retrieval filters the corpus by this tag so each agent only sees its own
// guidelines.
type DocType string

const (
	DocTypeClarity DocType = "clarity"
	DocTypeRigor   DocType = "rigor"
)

// ParseDocType validates a doc type string from request or CLI input.
func ParseDocType(s string) (DocType, error) {
	switch DocType(s) {
	case DocTypeClarity, DocTypeRigor:
		return DocType(s), nil
	}
	return "", fmt.Errorf("unknown doc type %q (want %q or %q)", s, DocTypeClarity, DocTypeRigor)
}

// Document is the root of a parsed guideline document.
type Document struct {
	Title    string  // Document title (from metadata or filename)
	Source   string  // Original filename
	Children []*Node // Top-level sections
}

// Node is a recursive section in a guideline document.
type Node struct {
	Title    string  // Section heading (empty for leaf text)
	Text     string  // Text content of this node (may be empty for container nodes)
	Page     int     // Source page (0 if N/A)
	Children []*Node // Subsections
}

// Chunk is a sized text segment with structural context, ready for embedding
// and indexing into the guideline corpus.
type Chunk struct {
	Text       string   // Chunk text content
	Index      int      // Sequence number within document
	Breadcrumb []string // Heading hierarchy, e.g. ["Reporting Standards", "Statistics"]
	PageStart  int
	PageEnd    int
}
