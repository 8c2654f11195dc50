package vectorstore

import "knowledgebase/internal/domain"

// Storage holds vectors with their metadata and supports nearest-neighbour search.
type Storage interface {
	Dimension() int
	Count() int
	Add(vectors [][]float32, metadatas []domain.Metadata) error
	Search(query []float32, k int) ([]domain.SearchResult, error)
}
