package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
)

func newTestDownloader(t *testing.T, outDir string) *Downloader {
	t.Helper()
	return NewDownloader(&http.Client{Timeout: 5 * time.Second}, rate.NewLimiter(rate.Inf, 1), outDir, 1<<20, "test")
}

func TestFetch_SavesPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("%PDF-1.4 fake content"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dl := newTestDownloader(t, dir)

	got, err := dl.Fetch(context.Background(), srv.URL+"/docs/GO_MS_43.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "GO_MS_43.pdf" {
		t.Errorf("path = %s", got)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "%PDF" {
		t.Errorf("content = %q", data)
	}
}

func TestFetch_SkipsExisting(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dl := newTestDownloader(t, dir)
	url := srv.URL + "/a.pdf"

	if _, err := dl.Fetch(context.Background(), url); err != nil {
		t.Fatal(err)
	}
	if _, err := dl.Fetch(context.Background(), url); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("server hit %d times, want 1", calls)
	}
}

func TestFetch_RejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>error page</html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dl := newTestDownloader(t, dir)

	if _, err := dl.Fetch(context.Background(), srv.URL+"/a.pdf"); err == nil {
		t.Fatal("expected error for non-PDF body")
	}
	// The temp file must not linger.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dl := newTestDownloader(t, t.TempDir())
	if _, err := dl.Fetch(context.Background(), srv.URL+"/missing.pdf"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestPDFURLs_FiltersAndDedupes(t *testing.T) {
	entries := []domain.SchemeLink{
		{SourceLinks: []string{
			"https://example.gov/docs/GO_MS_43.PDF",
			"https://example.gov/apply/",
		}},
		{SourceLinks: []string{
			"https://example.gov/docs/GO_MS_43.PDF",
			"https://example.gov/portal",
		}},
	}
	got := pdfURLs(entries)
	if len(got) != 1 || got[0] != "https://example.gov/docs/GO_MS_43.PDF" {
		t.Errorf("pdfURLs = %v", got)
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://example.gov/docs/GO%20MS%2043.pdf", "GO_MS_43.pdf", true},
		{"https://example.gov/download/aasara", "aasara.pdf", true},
		{"https://example.gov/", "", false},
	}
	for _, tt := range tests {
		got, err := fileNameFromURL(tt.url)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("fileNameFromURL(%q) = %q, %v; want %q", tt.url, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Errorf("fileNameFromURL(%q) expected error", tt.url)
		}
	}
}
