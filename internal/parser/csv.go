package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/scipeer/reviewd/internal/guideline"
)

// csvBatchSize is how many data rows go into one node.
const csvBatchSize = 20

// CSVParser handles CSV files. Rows are grouped into batches so each node
// stays a manageable size, and every cell is prefixed with its column
// header to keep the values meaningful once embedded.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*guideline.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &guideline.Document{
		Title:  baseName(filename),
		Source: filename,
	}
	if len(records) == 0 {
		return doc, nil
	}

	headers := records[0]
	rows := records[1:]

	for start := 0; start < len(rows); start += csvBatchSize {
		end := min(start+csvBatchSize, len(rows))

		var text strings.Builder
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n\n")
		for _, row := range rows[start:end] {
			text.WriteString(formatRow(headers, row))
			text.WriteString("\n")
		}

		doc.Children = append(doc.Children, &guideline.Node{
			// Row numbers are 1-indexed and count the header line.
			Title: fmt.Sprintf("Rows %d-%d", start+2, end+1),
			Text:  text.String(),
		})
	}

	return doc, nil
}

func formatRow(headers, row []string) string {
	parts := make([]string, 0, len(row))
	for i, cell := range row {
		if i < len(headers) {
			parts = append(parts, headers[i]+": "+cell)
		} else {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, ", ")
}
