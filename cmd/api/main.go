// Package main implements the YojanaSetu advise API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/YojanaSetu/yojana-mvp/engine/ingest"
	"github.com/YojanaSetu/yojana-mvp/engine/links"
	"github.com/YojanaSetu/yojana-mvp/engine/rag"
	"github.com/YojanaSetu/yojana-mvp/pkg/metrics"
	"github.com/YojanaSetu/yojana-mvp/pkg/mid"
	"github.com/YojanaSetu/yojana-mvp/pkg/natsutil"
	"github.com/YojanaSetu/yojana-mvp/pkg/ollama"
	"github.com/YojanaSetu/yojana-mvp/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	NATSURL      string
	OllamaURL    string
	OllamaAPIKey string
	EmbedModel   string
	ChatModel    string
	IndexPath    string
	MetaPath     string
	LinksPath    string
	DataDir      string
	CORSOrigin   string
	TopK         int
	AnswerRPS    float64
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		NATSURL:      envOr("NATS_URL", nats.DefaultURL),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaAPIKey: os.Getenv("OLLAMA_API_KEY"),
		EmbedModel:   envOr("EMBED_MODEL", "bge-m3"),
		ChatModel:    envOr("CHAT_MODEL", "llama3.1:8b"),
		IndexPath:    envOr("INDEX_PATH", "artifacts/chunks.index"),
		MetaPath:     envOr("META_PATH", "artifacts/chunks.jsonl"),
		LinksPath:    envOr("LINKS_PATH", "artifacts/scheme_links.json"),
		DataDir:      envOr("DATA_DIR", "data"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		TopK:         envIntOr("TOP_K", 5),
		AnswerRPS:    envFloatOr("ANSWER_RPS", 2),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// storeHolder swaps the retrieval store atomically when a rebuild lands, so
// in-flight requests keep the artifact pair they started with.
type storeHolder struct {
	ptr atomic.Pointer[rag.LocalStore]
}

func (h *storeHolder) Search(ctx context.Context, vector []float32, topK int) ([]domain.Evidence, error) {
	store := h.ptr.Load()
	if store == nil {
		return nil, domain.ErrIndexNotBuilt
	}
	return store.Search(ctx, vector, topK)
}

func (h *storeHolder) len() int {
	if store := h.ptr.Load(); store != nil {
		return store.Len()
	}
	return 0
}

// breakerAnswerer wraps the chat client in a circuit breaker so a dead
// answerer fails fast instead of holding every advise request for the full
// timeout.
type breakerAnswerer struct {
	breaker *resilience.Breaker
	inner   rag.Answerer
}

func (a *breakerAnswerer) Complete(ctx context.Context, system, user string) (string, error) {
	var reply string
	err := a.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		reply, err = a.inner.Complete(ctx, system, user)
		return err
	})
	return reply, err
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := &storeHolder{}
	reg := metrics.New()
	chunksGauge := reg.Gauge("index_chunks", "Chunks in the loaded index")

	reload := func() {
		store, err := rag.OpenLocalStore(cfg.IndexPath, cfg.MetaPath, cfg.EmbedModel)
		if err != nil {
			logger.Warn("index artifacts not loadable, advise will return 503", "err", err)
			return
		}
		holder.ptr.Store(store)
		chunksGauge.Set(int64(store.Len()))
		logger.Info("index loaded", "chunks", store.Len(), "model", store.Model())
	}
	reload()

	linkDB, err := links.Load(cfg.LinksPath)
	if err != nil {
		return fmt.Errorf("load links: %w", err)
	}
	logger.Info("links loaded", "entries", len(linkDB))

	// --- Connect to NATS for rebuild requests and reload notifications ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	sub, err := natsutil.Subscribe(nc, ingest.RebuildDoneSubject, func(_ context.Context, stats ingest.Stats) {
		logger.Info("rebuild finished, reloading artifacts", "chunks", stats.Chunks)
		reload()
	})
	if err != nil {
		return fmt.Errorf("subscribe rebuild done: %w", err)
	}
	defer sub.Unsubscribe()

	// --- Build advise service ---
	encoder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, cfg.OllamaAPIKey, 30*time.Second)
	answerer := &breakerAnswerer{
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		inner:   ollama.NewChatClient(cfg.OllamaURL, cfg.ChatModel, cfg.OllamaAPIKey, 60*time.Second),
	}
	limiter := resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.AnswerRPS, Burst: int(cfg.AnswerRPS) + 1})

	opts := rag.DefaultOptions()
	opts.TopK = cfg.TopK
	svc := rag.New(encoder, holder, answerer, linkDB, limiter, opts, logger)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth(holder))
	mux.HandleFunc("POST /api/advise", handleAdvise(svc, reg, logger))
	mux.HandleFunc("POST /api/rebuild", handleRebuild(nc, cfg.DataDir, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.OTel("yojana-api"),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
