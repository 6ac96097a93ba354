// Package ingest implements the offline build pipeline: discover source PDFs,
// extract and chunk them, embed the chunks, and persist the paired index and
// metadata artifacts the retriever serves from.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/YojanaSetu/yojana-mvp/engine/embed"
	"github.com/YojanaSetu/yojana-mvp/engine/index"
	"github.com/YojanaSetu/yojana-mvp/engine/meta"
	"github.com/YojanaSetu/yojana-mvp/pkg/fn"
)

// EmbedBatchSize is the max chunks per embedding request.
const EmbedBatchSize = 100

// ChunkSource turns one source document into chunk rows. Satisfied by
// extract.Extractor.
type ChunkSource interface {
	ExtractAndChunk(path string) ([]domain.Chunk, error)
}

// VectorSink is an optional secondary destination for chunk vectors.
// Satisfied by semantic.VectorStore.
type VectorSink interface {
	DeleteCollection(ctx context.Context) error
	EnsureCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}

// Builder runs index builds. Builds mutate the artifact pair, so they are
// serialized; a second Build call blocks until the first finishes.
type Builder struct {
	Source    ChunkSource
	Encoder   embed.Embedder
	Vectors   VectorSink // nil when only the local index is in use
	IndexPath string
	MetaPath  string
	Logger    *slog.Logger

	mu sync.Mutex
}

// Stats summarizes one completed build.
type Stats struct {
	Documents int `json:"documents"`
	Skipped   int `json:"skipped"`
	Chunks    int `json:"chunks"`
	Dims      int `json:"dims"`
}

type extracted struct {
	chunks  []domain.Chunk
	docs    int
	skipped int
}

type embedded struct {
	extracted
	vectors [][]float32
}

// Build runs the full pipeline over every PDF under dataDir. Malformed
// documents are skipped and counted; an empty corpus after skips is
// domain.ErrEmptyCorpus. Artifacts are replaced atomically, so a crash
// mid-build leaves the previous pair intact.
func (b *Builder) Build(ctx context.Context, dataDir string) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := b.Logger
	if log == nil {
		log = slog.Default()
	}

	pipeline := fn.Then(
		fn.Then(
			fn.TracedStage("build.discover", b.discover(log)),
			fn.TracedStage("build.extract", b.extract(log)),
		),
		fn.Then(
			fn.TracedStage("build.embed", b.embedStage()),
			fn.TracedStage("build.persist", b.persist(log)),
		),
	)

	stats, err := pipeline(ctx, dataDir).Unwrap()
	if err != nil {
		return Stats{}, err
	}
	log.Info("build done", "documents", stats.Documents, "skipped", stats.Skipped,
		"chunks", stats.Chunks, "dims", stats.Dims)
	return stats, nil
}

// discover lists PDF files under the data dir in name order, so the chunk
// ordering of a rebuild over an unchanged corpus is byte-identical.
func (b *Builder) discover(log *slog.Logger) fn.Stage[string, []string] {
	return func(_ context.Context, dataDir string) fn.Result[[]string] {
		entries, err := os.ReadDir(dataDir)
		if err != nil {
			return fn.Err[[]string](fmt.Errorf("ingest: read data dir %s: %w", dataDir, err))
		}
		var paths []string
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			paths = append(paths, filepath.Join(dataDir, e.Name()))
		}
		log.Info("build discover", "dir", dataDir, "pdfs", len(paths))
		return fn.Ok(paths)
	}
}

func (b *Builder) extract(log *slog.Logger) fn.Stage[[]string, extracted] {
	return func(_ context.Context, paths []string) fn.Result[extracted] {
		var out extracted
		for _, path := range paths {
			chunks, err := b.Source.ExtractAndChunk(path)
			if err != nil {
				if errors.Is(err, domain.ErrMalformedDocument) {
					log.Warn("build skipping malformed document", "path", path, "err", err)
					out.skipped++
					continue
				}
				return fn.Err[extracted](err)
			}
			for _, c := range chunks {
				// A bad row would corrupt the positional join for every
				// chunk after it, so the build stops here.
				if err := domain.ValidateChunk(c); err != nil {
					return fn.Err[extracted](fmt.Errorf("ingest: %s: %w", path, err))
				}
			}
			if len(chunks) > 0 {
				out.docs++
				out.chunks = append(out.chunks, chunks...)
			}
		}
		if len(out.chunks) == 0 {
			return fn.Err[extracted](fmt.Errorf("ingest: no usable chunks in corpus: %w", domain.ErrEmptyCorpus))
		}
		return fn.Ok(out)
	}
}

func (b *Builder) embedStage() fn.Stage[extracted, embedded] {
	return func(ctx context.Context, ex extracted) fn.Result[embedded] {
		vectors := make([][]float32, 0, len(ex.chunks))
		for i, batch := range fn.Chunk(ex.chunks, EmbedBatchSize) {
			texts := fn.Map(batch, func(c domain.Chunk) string { return c.Text })
			vecs, err := b.Encoder.EmbedBatch(ctx, texts)
			if err != nil {
				return fn.Err[embedded](fmt.Errorf("ingest: embed batch %d: %w", i, err))
			}
			if len(vecs) != len(texts) {
				return fn.Err[embedded](fmt.Errorf("ingest: embed batch %d: got %d vectors for %d texts", i, len(vecs), len(texts)))
			}
			vectors = append(vectors, embed.NormalizeAll(vecs)...)
		}
		return fn.Ok(embedded{extracted: ex, vectors: vectors})
	}
}

func (b *Builder) persist(log *slog.Logger) fn.Stage[embedded, Stats] {
	return func(ctx context.Context, em embedded) fn.Result[Stats] {
		dims := len(em.vectors[0])
		flat, err := index.NewFlat(dims, b.Encoder.Model())
		if err != nil {
			return fn.Err[Stats](err)
		}
		if err := flat.Add(em.vectors...); err != nil {
			return fn.Err[Stats](err)
		}
		if err := flat.Save(b.IndexPath); err != nil {
			return fn.Err[Stats](err)
		}
		if err := meta.Save(b.MetaPath, em.chunks); err != nil {
			return fn.Err[Stats](err)
		}

		if b.Vectors != nil {
			// Point IDs are deterministic per chunk, so an upsert alone would
			// leave points behind for documents removed from the corpus. The
			// mirror is rebuilt from scratch, like the local artifact pair.
			if err := b.Vectors.DeleteCollection(ctx); err != nil {
				return fn.Err[Stats](err)
			}
			if err := b.Vectors.EnsureCollection(ctx, dims); err != nil {
				return fn.Err[Stats](err)
			}
			if err := b.Vectors.Upsert(ctx, em.chunks, em.vectors); err != nil {
				return fn.Err[Stats](err)
			}
			log.Info("build mirrored to vector store", "points", len(em.chunks))
		}

		return fn.Ok(Stats{
			Documents: em.docs,
			Skipped:   em.skipped,
			Chunks:    len(em.chunks),
			Dims:      dims,
		})
	}
}
