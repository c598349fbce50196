package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry maps strategy names to builders. An instance is populated once at
// process start and then shared read-mostly by the review agents.
type Registry struct {
	log *slog.Logger

	mu       sync.RWMutex
	builders map[string]Builder
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		builders: make(map[string]Builder),
	}
}

// Register adds a builder under name. Registering the same name again
// overwrites the previous builder with a warning, never an error.
func (r *Registry) Register(name string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[name]; exists {
		r.log.Warn("retrieval strategy already registered, overwriting", "strategy", name)
	}
	r.builders[name] = b
	r.log.Info("registered retrieval strategy", "strategy", name)
}

// Create builds a pipeline for the named strategy. Overrides are merged onto
// the builder's defaults (override wins), the result is validated, and only
// then does the builder touch the store.
func (r *Registry) Create(ctx context.Context, name string, store Store, overrides Config) (Pipeline, error) {
	r.mu.RLock()
	b, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		available := strings.Join(r.List(), ", ")
		if available == "" {
			available = "none"
		}
		return nil, fmt.Errorf("unknown retrieval strategy %q (available: %s)", name, available)
	}

	config := merged(b.DefaultConfig(), overrides)
	if err := b.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", name, err)
	}

	r.log.Info("creating retrieval pipeline", "strategy", name, "config", sanitized(config))
	pipeline, err := b.Build(ctx, store, config)
	if err != nil {
		return nil, fmt.Errorf("build %s pipeline: %w", name, err)
	}
	return pipeline, nil
}

// List returns the registered strategy names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a strategy name is known.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}
