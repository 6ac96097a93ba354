package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/YojanaSetu/yojana-mvp/engine/index"
	"github.com/YojanaSetu/yojana-mvp/engine/meta"
)

type fakeSource struct {
	chunks    map[string][]domain.Chunk // keyed by file base name
	malformed map[string]bool
}

func (f *fakeSource) ExtractAndChunk(path string) ([]domain.Chunk, error) {
	name := filepath.Base(path)
	if f.malformed[name] {
		return nil, fmt.Errorf("extract %s: %w", name, domain.ErrMalformedDocument)
	}
	return f.chunks[name], nil
}

type fakeEncoder struct {
	batches int
}

func (f *fakeEncoder) Model() string { return "fake-model" }

func (f *fakeEncoder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batches++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{3, 4, 0}
	}
	return out, nil
}

type captureSink struct {
	ops    []string
	dims   int
	chunks []domain.Chunk
}

func (c *captureSink) DeleteCollection(_ context.Context) error {
	c.ops = append(c.ops, "delete")
	return nil
}

func (c *captureSink) EnsureCollection(_ context.Context, dims int) error {
	c.ops = append(c.ops, "ensure")
	c.dims = dims
	return nil
}

func (c *captureSink) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	c.ops = append(c.ops, "upsert")
	c.chunks = append(c.chunks, chunks...)
	return nil
}

func chunk(doc string, page, n int) domain.Chunk {
	return domain.Chunk{DocID: doc, FileName: doc + ".pdf", PageNo: page, ChunkNo: n, Text: "text of " + doc}
}

func newBuilder(t *testing.T, source ChunkSource) (*Builder, string, string) {
	t.Helper()
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "chunks.index")
	metaPath := filepath.Join(dir, "chunks.jsonl")
	return &Builder{
		Source:    source,
		Encoder:   &fakeEncoder{},
		IndexPath: indexPath,
		MetaPath:  metaPath,
	}, indexPath, metaPath
}

func touchPDFs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuild_RoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	touchPDFs(t, dataDir, "a.pdf", "b.pdf", "notes.txt")

	source := &fakeSource{chunks: map[string][]domain.Chunk{
		"a.pdf": {chunk("a", 1, 1), chunk("a", 1, 2)},
		"b.pdf": {chunk("b", 1, 1)},
	}}
	b, indexPath, metaPath := newBuilder(t, source)

	stats, err := b.Build(context.Background(), dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 2 || stats.Chunks != 3 || stats.Skipped != 0 || stats.Dims != 3 {
		t.Errorf("stats = %+v", stats)
	}

	flat, err := index.Load(indexPath)
	if err != nil {
		t.Fatal(err)
	}
	if flat.Len() != 3 || flat.Model() != "fake-model" {
		t.Errorf("index len = %d model = %q", flat.Len(), flat.Model())
	}
	chunks, err := meta.Load(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("metadata has %d chunks", len(chunks))
	}
	// a.pdf sorts before b.pdf, so its chunks come first.
	if chunks[0].DocID != "a" || chunks[2].DocID != "b" {
		t.Errorf("chunk order: %v", chunks)
	}
}

func TestBuild_NormalizesVectors(t *testing.T) {
	dataDir := t.TempDir()
	touchPDFs(t, dataDir, "a.pdf")

	source := &fakeSource{chunks: map[string][]domain.Chunk{"a.pdf": {chunk("a", 1, 1)}}}
	b, indexPath, _ := newBuilder(t, source)
	if _, err := b.Build(context.Background(), dataDir); err != nil {
		t.Fatal(err)
	}

	flat, err := index.Load(indexPath)
	if err != nil {
		t.Fatal(err)
	}
	// Encoder emits {3,4,0}; stored unit vector is {0.6,0.8,0}, so searching
	// with it scores exactly 1.
	hits, err := flat.Search([]float32{0.6, 0.8, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(hits[0].Score)-1) > 1e-5 {
		t.Errorf("score = %f, want 1 for normalized vector", hits[0].Score)
	}
}

func TestBuild_SkipsMalformed(t *testing.T) {
	dataDir := t.TempDir()
	touchPDFs(t, dataDir, "good.pdf", "bad.pdf")

	source := &fakeSource{
		chunks:    map[string][]domain.Chunk{"good.pdf": {chunk("good", 1, 1)}},
		malformed: map[string]bool{"bad.pdf": true},
	}
	b, _, _ := newBuilder(t, source)

	stats, err := b.Build(context.Background(), dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 || stats.Documents != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBuild_EmptyCorpus(t *testing.T) {
	dataDir := t.TempDir()
	touchPDFs(t, dataDir, "bad.pdf")

	source := &fakeSource{malformed: map[string]bool{"bad.pdf": true}}
	b, _, _ := newBuilder(t, source)

	if _, err := b.Build(context.Background(), dataDir); !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("err = %v, want ErrEmptyCorpus", err)
	}
}

func TestBuild_InvalidChunkAborts(t *testing.T) {
	dataDir := t.TempDir()
	touchPDFs(t, dataDir, "a.pdf")

	source := &fakeSource{chunks: map[string][]domain.Chunk{
		"a.pdf": {{DocID: "a", FileName: "a.pdf", PageNo: 0, ChunkNo: 1, Text: "x"}},
	}}
	b, _, _ := newBuilder(t, source)

	if _, err := b.Build(context.Background(), dataDir); err == nil {
		t.Fatal("expected error for invalid chunk row")
	}
}

func TestBuild_MissingDataDir(t *testing.T) {
	b, _, _ := newBuilder(t, &fakeSource{})
	if _, err := b.Build(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing data dir")
	}
}

func TestBuild_MirrorsToVectorSink(t *testing.T) {
	dataDir := t.TempDir()
	touchPDFs(t, dataDir, "a.pdf")

	source := &fakeSource{chunks: map[string][]domain.Chunk{"a.pdf": {chunk("a", 1, 1), chunk("a", 2, 1)}}}
	b, _, _ := newBuilder(t, source)
	sink := &captureSink{}
	b.Vectors = sink

	if _, err := b.Build(context.Background(), dataDir); err != nil {
		t.Fatal(err)
	}
	if sink.dims != 3 || len(sink.chunks) != 2 {
		t.Errorf("sink dims = %d chunks = %d", sink.dims, len(sink.chunks))
	}
}

func TestBuild_DropsCollectionBeforeUpsert(t *testing.T) {
	dataDir := t.TempDir()
	touchPDFs(t, dataDir, "a.pdf")

	source := &fakeSource{chunks: map[string][]domain.Chunk{"a.pdf": {chunk("a", 1, 1)}}}
	b, _, _ := newBuilder(t, source)
	sink := &captureSink{}
	b.Vectors = sink

	if _, err := b.Build(context.Background(), dataDir); err != nil {
		t.Fatal(err)
	}
	// Stale points from documents no longer in the corpus must be gone before
	// the new vectors land.
	want := []string{"delete", "ensure", "upsert"}
	if len(sink.ops) != len(want) {
		t.Fatalf("sink ops = %v", sink.ops)
	}
	for i, op := range want {
		if sink.ops[i] != op {
			t.Fatalf("sink ops = %v, want %v", sink.ops, want)
		}
	}
}

func TestBuild_BatchesLargeCorpus(t *testing.T) {
	dataDir := t.TempDir()
	touchPDFs(t, dataDir, "big.pdf")

	var chunks []domain.Chunk
	for i := 0; i < EmbedBatchSize+5; i++ {
		chunks = append(chunks, chunk("big", 1, i+1))
	}
	source := &fakeSource{chunks: map[string][]domain.Chunk{"big.pdf": chunks}}
	b, _, _ := newBuilder(t, source)
	enc := &fakeEncoder{}
	b.Encoder = enc

	stats, err := b.Build(context.Background(), dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Chunks != EmbedBatchSize+5 {
		t.Errorf("chunks = %d", stats.Chunks)
	}
	if enc.batches != 2 {
		t.Errorf("batches = %d, want 2", enc.batches)
	}
}
