// Package index implements the exact inner-product vector index used for
// retrieval. The corpus is small (tens of documents), so a brute-force flat
// index beats any approximate structure on both correctness and simplicity.
package index

import (
	"fmt"
	"sort"
)

// Hit is one nearest-neighbor result: the insertion position of the vector and
// its inner-product similarity to the query.
type Hit struct {
	Pos   int
	Score float32
}

// Flat is an append-only exact inner-product index. Vector position is the
// join key against the metadata store, so insertion order is load-bearing.
// Immutable after build; concurrent read-only searches need no locking.
type Flat struct {
	dims    int
	model   string
	vectors [][]float32
}

// NewFlat creates an empty index for unit vectors of the given dimensionality,
// tagged with the embedding model identity that produced them.
func NewFlat(dims int, model string) (*Flat, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("index: invalid dimensionality %d", dims)
	}
	return &Flat{dims: dims, model: model}, nil
}

// Dims returns the vector dimensionality.
func (f *Flat) Dims() int { return f.dims }

// Model returns the embedding model identity recorded at build time.
func (f *Flat) Model() string { return f.model }

// Len returns the number of stored vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Add appends vectors in order. Dimension mismatches abort the build; a
// truncated vector would silently corrupt every later positional join.
func (f *Flat) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dims {
			return fmt.Errorf("index: vector %d has %d dims, want %d", len(f.vectors)+i, len(v), f.dims)
		}
	}
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Search returns up to topK positions ordered by descending inner product.
// With unit-normalized vectors this is cosine similarity.
func (f *Flat) Search(query []float32, topK int) ([]Hit, error) {
	if len(query) != f.dims {
		return nil, fmt.Errorf("index: query has %d dims, want %d", len(query), f.dims)
	}
	if topK < 1 {
		return nil, fmt.Errorf("index: topK must be >= 1, got %d", topK)
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Pos: i, Score: dot(v, query)}
	}
	// Stable keeps insertion order among equal scores, so results are
	// deterministic across calls.
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
