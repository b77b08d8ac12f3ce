package domain

import "context"

// Embedder produces a fixed-length vector summarizing a text. The same
// input must always yield the same vector so re-ingestion stays idempotent
// and similarity results stay stable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length this embedder produces.
	Dimensions() int
}
