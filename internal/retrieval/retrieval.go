// Package retrieval provides pluggable strategies for fetching guideline
// passages relevant to a query. Strategies are registered by name and
// constructed through the Registry, so callers depend only on the Pipeline
// capability and never on a concrete strategy.
package retrieval

import (
	"context"

	"github.com/scipeer/reviewd/internal/vectorstore"
)

// Pipeline returns ranked supporting passages for a query.
type Pipeline interface {
	Retrieve(ctx context.Context, query string) ([]vectorstore.Document, error)
}

// Store is the slice of the vector store that strategies need.
type Store interface {
	SimilaritySearch(ctx context.Context, query string, k int, docType string) ([]vectorstore.Document, error)
	AllDocuments(ctx context.Context, docType string) ([]vectorstore.Document, error)
}

// Builder constructs a Pipeline from a store handle and a validated config.
// Validate runs on the merged config before Build; Build must not be reached
// with a config Validate rejected.
type Builder interface {
	DefaultConfig() Config
	Validate(config Config) error
	Build(ctx context.Context, store Store, config Config) (Pipeline, error)
}
