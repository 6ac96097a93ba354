// Package main implements the offline index builder. It either runs one
// build and exits (-once) or consumes rebuild requests from NATS.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/YojanaSetu/yojana-mvp/engine/extract"
	"github.com/YojanaSetu/yojana-mvp/engine/ingest"
	"github.com/YojanaSetu/yojana-mvp/engine/semantic"
	"github.com/YojanaSetu/yojana-mvp/pkg/ollama"
)

// Config holds all environment-based configuration.
type Config struct {
	NATSURL      string
	OllamaURL    string
	OllamaAPIKey string
	EmbedModel   string
	IndexPath    string
	MetaPath     string
	DataDir      string
	QdrantURL    string
	Collection   string
}

func loadConfig() Config {
	return Config{
		NATSURL:      envOr("NATS_URL", nats.DefaultURL),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaAPIKey: os.Getenv("OLLAMA_API_KEY"),
		EmbedModel:   envOr("EMBED_MODEL", "bge-m3"),
		IndexPath:    envOr("INDEX_PATH", "artifacts/chunks.index"),
		MetaPath:     envOr("META_PATH", "artifacts/chunks.jsonl"),
		DataDir:      envOr("DATA_DIR", "data"),
		QdrantURL:    os.Getenv("QDRANT_URL"),
		Collection:   envOr("QDRANT_COLLECTION", "yojana"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	once := flag.Bool("once", false, "run a single build and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, *once, logger); err != nil {
		logger.Error("indexer exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, once bool, logger *slog.Logger) error {
	builder := &ingest.Builder{
		Source:    extract.New(),
		Encoder:   ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, cfg.OllamaAPIKey, 2*time.Minute),
		IndexPath: cfg.IndexPath,
		MetaPath:  cfg.MetaPath,
		Logger:    logger,
	}

	// Qdrant mirroring is opt-in; the local artifact pair is always written.
	if cfg.QdrantURL != "" {
		store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()
		builder.Vectors = store
	}

	if once {
		stats, err := builder.Build(context.Background(), cfg.DataDir)
		if err != nil {
			return err
		}
		logger.Info("build complete",
			"documents", stats.Documents, "skipped", stats.Skipped,
			"chunks", stats.Chunks, "dims", stats.Dims)
		return nil
	}

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	sub, err := ingest.StartConsumer(nc, builder, logger)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer sub.Unsubscribe()

	logger.Info("indexer waiting for rebuild requests", "subject", ingest.RebuildSubject)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}
