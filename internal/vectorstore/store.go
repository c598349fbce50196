package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Document is one stored guideline passage together with its payload
// metadata and, for search results, its similarity score.
type Document struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score,omitempty"`
	DocType    string  `json:"doc_type"`
	Source     string  `json:"source,omitempty"`
	Breadcrumb string  `json:"breadcrumb,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	PageStart  int     `json:"page_start,omitempty"`
	PageEnd    int     `json:"page_end,omitempty"`
}

// Item is a passage to index.
type Item struct {
	Text       string
	DocType    string
	Source     string
	Breadcrumb string
	ChunkIndex int
	PageStart  int
	PageEnd    int
}

// Embedder produces one embedding vector per input text.
type Embedder interface {
	Embed(ctx context.Context, model string, input []string) ([][]float64, error)
}

// Store indexes and retrieves guideline passages in a Qdrant collection.
type Store struct {
	client     *Client
	embedder   Embedder
	log        *slog.Logger
	collection string
	model      string
	vectorSize int
}

func NewStore(client *Client, embedder Embedder, log *slog.Logger, collection, model string, vectorSize int) *Store {
	return &Store{
		client:     client,
		embedder:   embedder,
		log:        log,
		collection: collection,
		model:      model,
		vectorSize: vectorSize,
	}
}

// Init creates the backing collection if needed.
func (s *Store) Init(ctx context.Context) error {
	return s.client.EnsureCollection(ctx, s.collection, s.vectorSize)
}

// AddBatch embeds and indexes one batch of items. Callers own batching,
// concurrency, and retries.
func (s *Store) AddBatch(ctx context.Context, items []Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	vectors, err := s.embedder.Embed(ctx, s.model, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}

	points := make([]Point, len(items))
	for i, it := range items {
		payload := map[string]any{
			"text":        it.Text,
			"doc_type":    it.DocType,
			"chunk_index": it.ChunkIndex,
		}
		if it.Source != "" {
			payload["source"] = it.Source
		}
		if it.Breadcrumb != "" {
			payload["breadcrumb"] = it.Breadcrumb
		}
		if it.PageStart > 0 {
			payload["page_start"] = it.PageStart
			payload["page_end"] = it.PageEnd
		}
		points[i] = Point{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	if err := s.client.Upsert(ctx, s.collection, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

// SimilaritySearch embeds the query and returns the k nearest documents,
// filtered by docType when non-empty.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, docType string) ([]Document, error) {
	vectors, err := s.embedder.Embed(ctx, s.model, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}

	hits, err := s.client.Search(ctx, s.collection, vectors[0], k, docType)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, documentFromPoint(h))
	}
	return docs, nil
}

// AllDocuments returns the full corpus for docType in storage order.
func (s *Store) AllDocuments(ctx context.Context, docType string) ([]Document, error) {
	hits, err := s.client.Scroll(ctx, s.collection, docType)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, documentFromPoint(h))
	}
	return docs, nil
}

// DeleteSource removes every indexed passage from one source document.
func (s *Store) DeleteSource(ctx context.Context, source string) error {
	return s.client.DeleteBySource(ctx, s.collection, source)
}

// Info reports collection status and point count.
func (s *Store) Info(ctx context.Context) (*CollectionInfo, error) {
	return s.client.GetCollectionInfo(ctx, s.collection)
}

func documentFromPoint(p ScoredPoint) Document {
	return Document{
		ID:         fmt.Sprintf("%v", p.ID),
		Score:      p.Score,
		Text:       payloadString(p.Payload, "text"),
		DocType:    payloadString(p.Payload, "doc_type"),
		Source:     payloadString(p.Payload, "source"),
		Breadcrumb: payloadString(p.Payload, "breadcrumb"),
		ChunkIndex: payloadInt(p.Payload, "chunk_index"),
		PageStart:  payloadInt(p.Payload, "page_start"),
		PageEnd:    payloadInt(p.Payload, "page_end"),
	}
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
