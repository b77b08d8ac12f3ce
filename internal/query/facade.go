// Package query exposes the single call surface the presentation layer
// consumes: a filter goes in, a lazy sequence of canonical events comes out.
package query

import (
	"context"
	"fmt"

	"github.com/geofinch/disaster-monitor/internal/domain"
)

// Querier runs a translated filter against the store.
type Querier interface {
	Query(ctx context.Context, filter domain.EventFilter) (domain.EventCursor, error)
}

// Facade resolves free-text similarity queries into vectors and delegates
// everything else to the store. It computes no distances itself; the
// store's vector index does the nearest-neighbor work.
type Facade struct {
	store    Querier
	embedder domain.Embedder
}

// New creates a query façade. Pass a nil embedder to disable free-text
// similarity (explicit query vectors still work).
func New(store Querier, embedder domain.Embedder) *Facade {
	return &Facade{store: store, embedder: embedder}
}

// Query returns a lazy, finite, non-restartable sequence of matching
// events: relevance order for similarity queries, event date descending
// otherwise. An empty sequence is a valid outcome, not an error.
func (f *Facade) Query(ctx context.Context, filter domain.EventFilter) (domain.EventCursor, error) {
	if filter.SimilarText != "" && len(filter.Vector) == 0 {
		if f.embedder == nil {
			return nil, fmt.Errorf("similarity query: no embedder configured")
		}
		vec, err := f.embedder.Embed(ctx, filter.SimilarText)
		if err != nil {
			return nil, fmt.Errorf("embed similarity query: %w", err)
		}
		filter.Vector = vec
	}
	return f.store.Query(ctx, filter)
}
