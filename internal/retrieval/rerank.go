package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scipeer/reviewd/internal/cohere"
	"github.com/scipeer/reviewd/internal/vectorstore"
)

// Reranker reorders documents by relevance to a query, best first.
type Reranker interface {
	Rerank(ctx context.Context, model, query string, documents []string, topN int) ([]cohere.Result, error)
}

// RerankBuilder builds the two-stage strategy: fetch initial_k candidates by
// similarity, then reorder with a cross-encoder rerank call and keep the
// top k.
type RerankBuilder struct {
	log *slog.Logger

	// newReranker constructs the rerank client from the configured API key.
	// Overridable in tests.
	newReranker func(apiKey string) Reranker
}

func NewRerankBuilder(log *slog.Logger) *RerankBuilder {
	return &RerankBuilder{
		log: log,
		newReranker: func(apiKey string) Reranker {
			return cohere.NewClient("", apiKey)
		},
	}
}

func (b *RerankBuilder) DefaultConfig() Config {
	return Config{
		"k":              10,
		"initial_k":      20,
		"model":          "rerank-v3.5",
		"cohere_api_key": "",
		"doc_type":       "",
	}
}

func (b *RerankBuilder) Validate(config Config) error {
	if err := validateBaseConfig(config); err != nil {
		return err
	}
	for _, key := range []string{"initial_k", "model", "cohere_api_key"} {
		if _, present := config[key]; !present {
			return fmt.Errorf("config key %q is required", key)
		}
	}

	k, _ := config.Int("k")
	initialK, ok := config.Int("initial_k")
	if !ok || initialK <= 0 {
		return fmt.Errorf(`"initial_k" must be a positive integer, got %v`, config["initial_k"])
	}
	if initialK < k {
		return fmt.Errorf(`"initial_k" (%d) must be >= "k" (%d): cannot return more documents than retrieved`, initialK, k)
	}
	if config.String("cohere_api_key") == "" {
		return fmt.Errorf(`"cohere_api_key" must not be empty`)
	}
	if config.String("model") == "" {
		return fmt.Errorf(`"model" must be a non-empty string`)
	}
	return nil
}

func (b *RerankBuilder) Build(ctx context.Context, store Store, config Config) (Pipeline, error) {
	k, _ := config.Int("k")
	initialK, _ := config.Int("initial_k")
	return &rerankPipeline{
		store:    store,
		reranker: b.newReranker(config.String("cohere_api_key")),
		log:      b.log,
		model:    config.String("model"),
		k:        k,
		initialK: initialK,
		docType:  config.String("doc_type"),
	}, nil
}

type rerankPipeline struct {
	store    Store
	reranker Reranker
	log      *slog.Logger
	model    string
	k        int
	initialK int
	docType  string
}

func (p *rerankPipeline) Retrieve(ctx context.Context, query string) ([]vectorstore.Document, error) {
	candidates, err := p.store.SimilaritySearch(ctx, query, p.initialK, p.docType)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	results, err := p.reranker.Rerank(ctx, p.model, query, texts, p.k)
	if err != nil {
		// A failed rerank degrades to similarity order rather than failing
		// the retrieval.
		p.log.Warn("rerank failed, returning similarity order", "error", err)
		if len(candidates) > p.k {
			candidates = candidates[:p.k]
		}
		return candidates, nil
	}

	out := make([]vectorstore.Document, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		doc := candidates[r.Index]
		doc.Score = r.RelevanceScore
		out = append(out, doc)
	}
	if len(out) > p.k {
		out = out[:p.k]
	}
	return out, nil
}
