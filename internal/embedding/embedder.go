package embedding

import "context"

// Embedder converts a batch of texts into fixed-width vectors.
// The i-th vector corresponds to the i-th text. An empty batch yields an
// empty result; Dimension is fixed for the lifetime of the embedder.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
