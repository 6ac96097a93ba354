package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"
)

// Downloader fetches source PDFs from government portals. Requests are rate
// limited; state portals drop clients that hammer them.
type Downloader struct {
	client    *http.Client
	limiter   *rate.Limiter
	outDir    string
	maxSize   int64
	userAgent string
}

// NewDownloader creates a Downloader writing into outDir.
func NewDownloader(client *http.Client, limiter *rate.Limiter, outDir string, maxSize int64, userAgent string) *Downloader {
	return &Downloader{
		client:    client,
		limiter:   limiter,
		outDir:    outDir,
		maxSize:   maxSize,
		userAgent: userAgent,
	}
}

// Fetch downloads one PDF and returns its local path. Already-downloaded
// files are kept as is, so repeated runs only fetch what is missing.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (string, error) {
	name, err := fileNameFromURL(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	localPath := filepath.Join(d.outDir, name)
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status %d for %s", resp.StatusCode, rawURL)
	}
	if d.maxSize > 0 && resp.ContentLength > d.maxSize {
		return "", fmt.Errorf("file too large: %d bytes", resp.ContentLength)
	}

	tmpPath := localPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}

	reader := io.Reader(resp.Body)
	if d.maxSize > 0 {
		reader = io.LimitReader(resp.Body, d.maxSize)
	}
	_, err = io.Copy(f, reader)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write file: %w", err)
	}

	if err := verifyPDF(tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%s: %w", rawURL, err)
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}
	return localPath, nil
}

// fileNameFromURL derives a safe local file name from the URL path.
func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("no file name in url %s", rawURL)
	}
	name = sanitizeName(name)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name, nil
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, s)
}

// verifyPDF checks that the file starts with %PDF.
func verifyPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, 5)
	n, err := f.Read(header)
	if err != nil || n < 4 {
		return fmt.Errorf("cannot read PDF header")
	}
	if string(header[:4]) != "%PDF" {
		return fmt.Errorf("not a valid PDF file")
	}
	return nil
}
