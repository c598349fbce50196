// Package chunker splits parsed guideline documents into sized, structure
// aware chunks ready for embedding. Section boundaries are respected and
// each chunk carries the heading breadcrumb it came from.
package chunker

import (
	"strings"

	"github.com/scipeer/reviewd/internal/guideline"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

// DefaultConfig returns sensible defaults for guideline corpora.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		MinChunk:     50,
	}
}

// ChunkDocument walks a parsed document and produces structure-aware chunks.
// Zero or negative config values fall back to the defaults.
func ChunkDocument(doc *guideline.Document, cfg Config) []guideline.Chunk {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = def.MinChunk
	}

	s := &splitter{cfg: cfg}
	for _, child := range doc.Children {
		s.walk(child, nil)
	}
	return s.chunks
}

type splitter struct {
	cfg    Config
	chunks []guideline.Chunk
}

func (s *splitter) walk(node *guideline.Node, breadcrumb []string) {
	bc := breadcrumb
	if node.Title != "" {
		bc = append(append([]string{}, breadcrumb...), node.Title)
	}

	if node.Text != "" {
		s.emit(node, bc)
	}
	for _, child := range node.Children {
		s.walk(child, bc)
	}
}

// emit appends one or more chunks for a node's text, splitting when the
// text exceeds the target size and dropping fragments below MinChunk.
func (s *splitter) emit(node *guideline.Node, bc []string) {
	parts := []string{node.Text}
	if EstimateTokens(node.Text) > s.cfg.ChunkSize {
		parts = splitText(node.Text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	}
	for _, part := range parts {
		if EstimateTokens(part) < s.cfg.MinChunk {
			continue
		}
		s.chunks = append(s.chunks, guideline.Chunk{
			Text:       part,
			Index:      len(s.chunks),
			Breadcrumb: copyBreadcrumb(bc),
			PageStart:  node.Page,
			PageEnd:    node.Page,
		})
	}
}

// splitText breaks text into chunks of approximately targetTokens, carrying
// overlapTokens of trailing context into each following chunk.
func splitText(text string, targetTokens, overlapTokens int) []string {
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		// A single oversized paragraph gets split by sentences instead.
		if paraTokens > targetTokens {
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			result = append(result, splitBySentences(para, targetTokens, overlapTokens)...)
			continue
		}

		if currentTokens+paraTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())

			overlap := overlapTail(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

func splitByParagraphs(text string) []string {
	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks an oversized paragraph into sentence-based chunks.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := overlapTail(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting on terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}

// overlapTail extracts the last overlapTokens worth of text, approximated
// at 1.33 tokens per word.
func overlapTail(text string, overlapTokens int) string {
	words := strings.Fields(text)
	targetWords := int(float64(overlapTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
