// Package main refreshes the curated scheme links database and downloads the
// source PDFs it references into the corpus data dir.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/YojanaSetu/yojana-mvp/engine/links"
	"github.com/YojanaSetu/yojana-mvp/pkg/fn"
)

const userAgent = "YojanaSetu-synclinks/1.0"

func main() {
	linksPath := flag.String("links", "artifacts/scheme_links.json", "scheme links database path")
	dataDir := flag.String("data", "data", "directory for downloaded source PDFs")
	skipDownload := flag.Bool("skip-download", false, "only write the links database")
	rps := flag.Float64("rps", 1, "download requests per second")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*linksPath, *dataDir, *skipDownload, *rps, logger); err != nil {
		logger.Error("synclinks failed", "err", err)
		os.Exit(1)
	}
}

func run(linksPath, dataDir string, skipDownload bool, rps float64, logger *slog.Logger) error {
	if err := links.Write(linksPath, links.Seed); err != nil {
		return err
	}
	logger.Info("links database written", "path", linksPath, "entries", len(links.Seed))

	if skipDownload {
		return nil
	}

	urls := pdfURLs(links.Seed)

	dl := NewDownloader(
		&http.Client{Timeout: 2 * time.Minute},
		rate.NewLimiter(rate.Limit(rps), 1),
		dataDir,
		64<<20,
		userAgent,
	)

	fetch := fn.RetryStage(fn.DefaultRetry, func(ctx context.Context, u string) fn.Result[string] {
		return fn.FromPair(dl.Fetch(ctx, u))
	})

	results := fn.ParMapResult(urls, 3, func(u string) fn.Result[string] {
		return fetch(context.Background(), u)
	})

	fetched, failed := 0, 0
	for i, r := range results {
		if path, err := r.Unwrap(); err != nil {
			failed++
			logger.Warn("download failed", "url", urls[i], "err", err)
		} else {
			fetched++
			logger.Info("downloaded", "url", urls[i], "path", path)
		}
	}
	logger.Info("synclinks done", "fetched", fetched, "failed", failed)

	if fetched == 0 && failed > 0 {
		return domain.ErrEmptyCorpus
	}
	return nil
}

// pdfURLs collects the distinct downloadable links across entries. Portal and
// application pages are listed for users in the links database but are not
// corpus material, so only .pdf links are fetched. One entry can cite a link
// another entry also cites; each is fetched once.
func pdfURLs(entries []domain.SchemeLink) []string {
	var urls []string
	for _, entry := range entries {
		for _, u := range entry.SourceLinks {
			if strings.HasSuffix(strings.ToLower(u), ".pdf") {
				urls = append(urls, u)
			}
		}
	}
	return fn.UniqueBy(urls, func(u string) string { return u })
}
