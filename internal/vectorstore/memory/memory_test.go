package memory

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebase/internal/domain"
)

func meta(text string) domain.Metadata {
	return domain.Metadata{Text: text, Source: "test"}
}

func randomVectors(r *rand.Rand, n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = r.Float32()
		}
		out[i] = v
	}
	return out
}

func TestSearch_Basic(t *testing.T) {
	s, err := NewStorage(2)
	require.NoError(t, err)

	require.NoError(t, s.Add(
		[][]float32{{0, 0}, {1, 0}, {0, 3}},
		[]domain.Metadata{meta("origin"), meta("right"), meta("up")},
	))

	results, err := s.Search([]float32{0.9, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].RowID)
	assert.Equal(t, "right", results[0].Metadata.Text)
	assert.InDelta(t, 0.01, results[0].Distance, 1e-6)
	assert.Equal(t, 0, results[1].RowID)
	assert.InDelta(t, 0.81, results[1].Distance, 1e-6)
}

func TestSearch_EmptyIndex(t *testing.T) {
	s, err := NewStorage(4)
	require.NoError(t, err)

	results, err := s.Search([]float32{1, 2, 3, 4}, 3)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_SelfMatch(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s, err := NewStorage(128)
	require.NoError(t, err)

	vecs := randomVectors(r, 50, 128)
	metas := make([]domain.Metadata, len(vecs))
	for i := range metas {
		metas[i] = meta(fmt.Sprintf("row %d", i))
	}
	require.NoError(t, s.Add(vecs, metas))

	for _, i := range []int{0, 17, 49} {
		results, err := s.Search(vecs[i], 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, i, results[0].RowID)
		assert.Less(t, results[0].Distance, 1e-6)
	}
}

func TestSearch_KLargerThanCount(t *testing.T) {
	s, err := NewStorage(1)
	require.NoError(t, err)
	require.NoError(t, s.Add([][]float32{{3}, {1}, {2}}, []domain.Metadata{meta("a"), meta("b"), meta("c")}))

	results, err := s.Search([]float32{0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []int{1, 2, 0}, []int{results[0].RowID, results[1].RowID, results[2].RowID})
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestSearch_TiesOrderedByRowID(t *testing.T) {
	s, err := NewStorage(2)
	require.NoError(t, err)
	require.NoError(t, s.Add(
		[][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}},
		[]domain.Metadata{meta("e"), meta("n"), meta("w"), meta("s")},
	))

	results, err := s.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	for i, r := range results {
		assert.Equal(t, i, r.RowID)
		assert.InDelta(t, 1.0, r.Distance, 1e-9)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	s, err := NewStorage(16)
	require.NoError(t, err)
	vecs := randomVectors(r, 20, 16)
	require.NoError(t, s.Add(vecs, make([]domain.Metadata, len(vecs))))

	q := randomVectors(r, 1, 16)[0]
	a, err := s.Search(q, 5)
	require.NoError(t, err)
	b, err := s.Search(q, 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSearch_RejectsInvalidInput(t *testing.T) {
	s, err := NewStorage(3)
	require.NoError(t, err)

	for _, k := range []int{0, -1} {
		_, err = s.Search([]float32{0, 0, 0}, k)
		assert.True(t, errors.Is(err, domain.ErrInvalidK), "k=%d", k)
		assert.True(t, domain.IsValidation(err))
	}

	_, err = s.Search([]float32{0, 0}, 1)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestAdd_DimensionMismatchLeavesIndexUnchanged(t *testing.T) {
	s, err := NewStorage(128)
	require.NoError(t, err)
	require.NoError(t, s.Add([][]float32{make([]float32, 128)}, []domain.Metadata{meta("ok")}))

	bad := [][]float32{make([]float32, 128), make([]float32, 129)}
	err = s.Add(bad, []domain.Metadata{meta("a"), meta("b")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "expected 128, got 129")
	assert.Contains(t, err.Error(), "vectors[1]")
	assert.Equal(t, 1, s.Count())
}

func TestAdd_LengthMismatch(t *testing.T) {
	s, err := NewStorage(2)
	require.NoError(t, err)

	err = s.Add([][]float32{{1, 2}}, nil)
	assert.True(t, errors.Is(err, domain.ErrLengthMismatch))
	assert.Zero(t, s.Count())
}

func TestAdd_CopiesVectors(t *testing.T) {
	s, err := NewStorage(2)
	require.NoError(t, err)

	v := []float32{1, 1}
	require.NoError(t, s.Add([][]float32{v}, []domain.Metadata{meta("x")}))
	v[0] = 100

	results, err := s.Search([]float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Zero(t, results[0].Distance)
}

func TestAdd_MetadataIsIsolated(t *testing.T) {
	s, err := NewStorage(2)
	require.NoError(t, err)

	attrs := map[string]string{"file_type": "text"}
	require.NoError(t, s.Add([][]float32{{1, 1}}, []domain.Metadata{{Text: "x", Attributes: attrs}}))
	attrs["file_type"] = "changed-by-caller"

	first, err := s.Search([]float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "text", first[0].Metadata.Attributes["file_type"])
	first[0].Metadata.Attributes["file_type"] = "changed-by-reader"

	second, err := s.Search([]float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "text", second[0].Metadata.Attributes["file_type"])
}

func TestAdd_EmptyBatch(t *testing.T) {
	s, err := NewStorage(2)
	require.NoError(t, err)
	require.NoError(t, s.Add(nil, nil))
	assert.Zero(t, s.Count())
}

func TestNewStorage_InvalidDimension(t *testing.T) {
	_, err := NewStorage(0)
	assert.True(t, errors.Is(err, domain.ErrInvalidDimension))
}

func TestConcurrentAddAndSearch(t *testing.T) {
	const batches, batchSize, dim = 20, 5, 8
	s, err := NewStorage(dim)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for b := 0; b < batches; b++ {
		wg.Add(2)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			vecs := randomVectors(r, batchSize, dim)
			assert.NoError(t, s.Add(vecs, make([]domain.Metadata, batchSize)))
		}(int64(b))
		go func() {
			defer wg.Done()
			results, err := s.Search(make([]float32, dim), batches*batchSize)
			assert.NoError(t, err)
			// whole batches only
			assert.Zero(t, len(results)%batchSize)
		}()
	}
	wg.Wait()
	assert.Equal(t, batches*batchSize, s.Count())
}
