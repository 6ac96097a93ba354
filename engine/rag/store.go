package rag

import (
	"context"
	"fmt"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/YojanaSetu/yojana-mvp/engine/index"
	"github.com/YojanaSetu/yojana-mvp/engine/meta"
)

// LocalStore serves retrieval from the on-disk build artifacts: the flat
// vector index and the chunk metadata file. Vector position i in the index
// corresponds to chunk i in the metadata, so the two files are only valid as
// a pair.
type LocalStore struct {
	flat   *index.Flat
	chunks []domain.Chunk
}

// NewLocalStore pairs an index with its chunk metadata. A count mismatch
// means the artifacts came from different builds and every positional join
// would be wrong, so it is rejected outright.
func NewLocalStore(flat *index.Flat, chunks []domain.Chunk) (*LocalStore, error) {
	if flat.Len() != len(chunks) {
		return nil, fmt.Errorf("rag: index has %d vectors but metadata has %d chunks: %w",
			flat.Len(), len(chunks), domain.ErrCorruptArtifacts)
	}
	return &LocalStore{flat: flat, chunks: chunks}, nil
}

// OpenLocalStore loads both artifacts from disk. If model is non-empty it
// must match the model recorded in the index, otherwise query vectors and
// corpus vectors would live in different spaces.
func OpenLocalStore(indexPath, metaPath, model string) (*LocalStore, error) {
	flat, err := index.Load(indexPath)
	if err != nil {
		return nil, err
	}
	if model != "" && flat.Model() != model {
		return nil, fmt.Errorf("rag: index built with model %q but retriever configured for %q: %w",
			flat.Model(), model, domain.ErrIndexNotBuilt)
	}
	chunks, err := meta.Load(metaPath)
	if err != nil {
		return nil, err
	}
	return NewLocalStore(flat, chunks)
}

// Len returns the number of indexed chunks.
func (s *LocalStore) Len() int { return s.flat.Len() }

// Model returns the embedding model the artifacts were built with.
func (s *LocalStore) Model() string { return s.flat.Model() }

// Search runs exact nearest-neighbor search and joins hits back to their
// chunks by position.
func (s *LocalStore) Search(ctx context.Context, vector []float32, topK int) ([]domain.Evidence, error) {
	hits, err := s.flat.Search(vector, topK)
	if err != nil {
		return nil, err
	}
	evidence := make([]domain.Evidence, len(hits))
	for i, h := range hits {
		evidence[i] = domain.Evidence{Chunk: s.chunks[h.Pos], Score: h.Score}
	}
	return evidence, nil
}
