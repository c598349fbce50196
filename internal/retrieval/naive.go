package retrieval

import (
	"context"
	"fmt"

	"github.com/scipeer/reviewd/internal/vectorstore"
)

// NaiveBuilder builds the direct similarity search strategy: embed the query
// and return the top-k nearest passages, optionally filtered by doc type.
type NaiveBuilder struct{}

func (NaiveBuilder) DefaultConfig() Config {
	return Config{
		"k":        10,
		"doc_type": "",
	}
}

func (NaiveBuilder) Validate(config Config) error {
	return validateBaseConfig(config)
}

func (NaiveBuilder) Build(ctx context.Context, store Store, config Config) (Pipeline, error) {
	k, _ := config.Int("k")
	return &similarityPipeline{
		store:   store,
		k:       k,
		docType: config.String("doc_type"),
	}, nil
}

type similarityPipeline struct {
	store   Store
	k       int
	docType string
}

func (p *similarityPipeline) Retrieve(ctx context.Context, query string) ([]vectorstore.Document, error) {
	return p.store.SimilaritySearch(ctx, query, p.k, p.docType)
}

// validateBaseConfig checks the keys shared by every strategy.
func validateBaseConfig(config Config) error {
	if _, present := config["k"]; !present {
		return fmt.Errorf(`config key "k" is required`)
	}
	k, ok := config.Int("k")
	if !ok || k <= 0 {
		return fmt.Errorf(`"k" must be a positive integer, got %v`, config["k"])
	}
	if raw, present := config["doc_type"]; present && raw != nil {
		if _, ok := raw.(string); !ok {
			return fmt.Errorf(`"doc_type" must be a string, got %T`, raw)
		}
	}
	return nil
}
