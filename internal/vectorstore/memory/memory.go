package memory

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"knowledgebase/internal/domain"
)

type entry struct {
	vector   []float32
	metadata domain.Metadata
}

// Storage is an in-memory vector index using an exact brute-force
// squared-L2 scan. Row ids are insertion positions and never change.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
}

// NewStorage creates an empty index for vectors of the given width.
func NewStorage(dimension int) (*Storage, error) {
	if dimension <= 0 {
		return nil, domain.NewValidationError("dimension", strconv.Itoa(dimension), domain.ErrInvalidDimension)
	}
	return &Storage{dimension: dimension}, nil
}

func (s *Storage) Dimension() int { return s.dimension }

func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Add appends a batch of vectors with their metadata. The whole batch is
// validated first; on error the index is left unchanged.
func (s *Storage) Add(vectors [][]float32, metadatas []domain.Metadata) error {
	if len(vectors) != len(metadatas) {
		return domain.NewValidationError("metadatas",
			fmt.Sprintf("%d vectors, %d metadata entries", len(vectors), len(metadatas)),
			domain.ErrLengthMismatch)
	}
	batch := make([]entry, len(vectors))
	for i, v := range vectors {
		if len(v) != s.dimension {
			return domain.NewDimensionError(fmt.Sprintf("vectors[%d]", i), s.dimension, len(v))
		}
		batch[i] = entry{vector: slices.Clone(v), metadata: cloneMetadata(metadatas[i])}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, batch...)
	return nil
}

// Search returns up to k entries closest to query, nearest first.
// Equal distances are ordered by row id.
func (s *Storage) Search(query []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, domain.NewValidationError("k", strconv.Itoa(k), domain.ErrInvalidK)
	}
	if len(query) != s.dimension {
		return nil, domain.NewDimensionError("query", s.dimension, len(query))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return []domain.SearchResult{}, nil
	}

	results := make([]domain.SearchResult, len(s.entries))
	for i := range s.entries {
		results[i] = domain.SearchResult{
			RowID:    i,
			Metadata: s.entries[i].metadata,
			Distance: squaredL2(s.entries[i].vector, query),
		}
	}
	// stable sort keeps row id order for equal distances
	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if k < len(results) {
		results = results[:k]
	}
	for i := range results {
		results[i].Metadata = cloneMetadata(results[i].Metadata)
	}
	return results, nil
}

// cloneMetadata copies the attribute map so stored entries never alias
// caller-owned or result-owned maps.
func cloneMetadata(m domain.Metadata) domain.Metadata {
	m.Attributes = maps.Clone(m.Attributes)
	return m
}

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
