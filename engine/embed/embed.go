// Package embed defines the embedding encoder port shared by the offline
// build and the online retriever. Both sides must encode through the same
// model and the same normalization policy, or similarity scores stop being
// comparable.
package embed

import (
	"context"
	"math"
)

// Embedder maps batches of text to fixed-dimension vectors. Implementations
// must be deterministic for a fixed model identity.
type Embedder interface {
	// Model identifies the embedding model; it is recorded in the index
	// artifact and verified when the retriever loads it.
	Model() string
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Normalize scales v to unit L2 length in place and returns it. Unit vectors
// make inner product equal to cosine similarity, which is what the flat index
// assumes. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// NormalizeAll normalizes every vector in the batch in place.
func NormalizeAll(vecs [][]float32) [][]float32 {
	for i := range vecs {
		vecs[i] = Normalize(vecs[i])
	}
	return vecs
}
