package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/scipeer/reviewd/internal/guideline"
)

// TextParser handles plain text files. Blank lines delimit paragraphs and
// each paragraph becomes one node.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*guideline.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &guideline.Document{
		Title:  baseName(filename),
		Source: filename,
	}

	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		doc.Children = append(doc.Children, &guideline.Node{Text: current.String()})
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}
