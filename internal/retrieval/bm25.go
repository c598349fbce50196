package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/scipeer/reviewd/internal/vectorstore"
)

// BM25 parameters, standard Okapi values.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25Builder builds the keyword ranking strategy. The full filtered corpus
// is loaded once at build time to compute term statistics; no embedding is
// involved at query time.
type BM25Builder struct {
	log *slog.Logger
}

func NewBM25Builder(log *slog.Logger) *BM25Builder {
	return &BM25Builder{log: log}
}

func (b *BM25Builder) DefaultConfig() Config {
	return Config{
		"k":        10,
		"doc_type": "",
	}
}

func (b *BM25Builder) Validate(config Config) error {
	return validateBaseConfig(config)
}

func (b *BM25Builder) Build(ctx context.Context, store Store, config Config) (Pipeline, error) {
	k, _ := config.Int("k")
	docType := config.String("doc_type")

	docs, err := store.AllDocuments(ctx, docType)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if len(docs) == 0 {
		b.log.Warn("no documents for keyword index, pipeline will return empty results", "doc_type", docType)
		return &bm25Pipeline{k: k}, nil
	}

	b.log.Info("built keyword index", "documents", len(docs), "doc_type", docType)
	return &bm25Pipeline{
		index: newBM25Index(docs),
		k:     k,
	}, nil
}

type bm25Pipeline struct {
	index *bm25Index
	k     int
}

func (p *bm25Pipeline) Retrieve(ctx context.Context, query string) ([]vectorstore.Document, error) {
	if p.index == nil {
		return nil, nil
	}
	return p.index.search(query, p.k), nil
}

type bm25Index struct {
	docs      []vectorstore.Document
	termFreqs []map[string]int
	docLens   []int
	avgLen    float64
	docFreq   map[string]int
}

func newBM25Index(docs []vectorstore.Document) *bm25Index {
	idx := &bm25Index{
		docs:      docs,
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		docFreq:   make(map[string]int),
	}

	var totalLen int
	for i, doc := range docs {
		terms := tokenize(doc.Text)
		freqs := make(map[string]int, len(terms))
		for _, t := range terms {
			freqs[t]++
		}
		idx.termFreqs[i] = freqs
		idx.docLens[i] = len(terms)
		totalLen += len(terms)
		for t := range freqs {
			idx.docFreq[t]++
		}
	}
	idx.avgLen = float64(totalLen) / float64(len(docs))
	if idx.avgLen == 0 {
		idx.avgLen = 1
	}
	return idx
}

// search scores every document against the query terms and returns the top
// k, best first. Ties keep corpus order.
func (idx *bm25Index) search(query string, k int) []vectorstore.Document {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	n := float64(len(idx.docs))
	scores := make([]float64, len(idx.docs))
	for i := range idx.docs {
		var score float64
		for _, term := range terms {
			df := idx.docFreq[term]
			if df == 0 {
				continue
			}
			tf := float64(idx.termFreqs[i][term])
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(idx.docLens[i])/idx.avgLen))
			score += idf * norm
		}
		scores[i] = score
	}

	order := make([]int, len(idx.docs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]vectorstore.Document, 0, k)
	for _, i := range order[:k] {
		doc := idx.docs[i]
		doc.Score = scores[i]
		out = append(out, doc)
	}
	return out
}

// tokenize lowercases and splits on any non-alphanumeric rune.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
