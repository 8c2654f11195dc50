package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"

	"knowledgebase/internal/domain"
	"knowledgebase/internal/textutil"
)

// DefaultDimension matches the width of common MiniLM sentence embeddings.
const DefaultDimension = 384

// Embedder is a local bag-of-words embedder. Every token is hashed into one
// of a fixed number of buckets and weighted by its term frequency; vectors
// are L2 normalized. The mapping is deterministic and needs no corpus.
type Embedder struct {
	dimension int
}

// NewEmbedder creates an embedder producing vectors of the given width.
func NewEmbedder(dimension int) (*Embedder, error) {
	if dimension <= 0 {
		return nil, domain.NewValidationError("dimension", strconv.Itoa(dimension), domain.ErrInvalidDimension)
	}
	return &Embedder{dimension: dimension}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes one vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float32 {
	vec := make([]float32, e.dimension)
	tokens := textutil.Tokens(text)
	if len(tokens) == 0 {
		return vec
	}
	tf := make(map[int]int)
	for _, tok := range tokens {
		tf[e.bucket(tok)]++
	}
	total := float64(len(tokens))
	weights := make([]float64, e.dimension)
	norm := 0.0
	for idx, count := range tf {
		w := float64(count) / total
		weights[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for idx := range tf {
		vec[idx] = float32(weights[idx] / norm)
	}
	return vec
}

func (e *Embedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimension))
}
