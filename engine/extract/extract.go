// Package extract reads source PDFs page by page, normalizes the text, and
// splits long pages into overlapping fixed-size windows ready for embedding.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/ledongthuc/pdf"
)

const (
	// DefaultMaxChars is the window size in runes.
	DefaultMaxChars = 1400
	// DefaultOverlap is the back-overlap between consecutive windows.
	DefaultOverlap = 200
)

// Extractor splits documents into chunks using a fixed window policy. The same
// policy must be used for every build of an index; mixing policies across
// builds makes chunk boundaries incomparable.
type Extractor struct {
	MaxChars int
	Overlap  int
}

// New returns an Extractor with the default window policy.
func New() *Extractor {
	return &Extractor{MaxChars: DefaultMaxChars, Overlap: DefaultOverlap}
}

// CleanText replaces NUL bytes with spaces, collapses all whitespace runs
// (including newlines) to a single space, and trims the result.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\x00", " ")
	return strings.Join(strings.Fields(s), " ")
}

// ChunkText cleans text and splits it into windows of at most maxChars runes.
// Text that fits in one window is returned as a single chunk. Longer text is
// windowed with back-overlap: window n+1 starts at max(0, end(n)-overlap), so
// every rune position is covered by at least one chunk and the loop terminates
// once a window reaches the end.
func ChunkText(text string, maxChars, overlap int) []string {
	text = CleanText(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlap < 0 || overlap >= maxChars {
		// An overlap as large as the window would stall the loop.
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return out
}

// ExtractAndChunk opens a PDF and returns one chunk row per window per page.
// Pages whose extracted text is empty or whitespace-only are skipped entirely.
// DocID is the file name without extension; page and chunk numbers are 1-based.
// A document that cannot be parsed at all is reported as
// domain.ErrMalformedDocument so the build pipeline can skip it and continue.
func (e *Extractor) ExtractAndChunk(path string) (chunks []domain.Chunk, err error) {
	fileName := filepath.Base(path)
	docID := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	// The pdf library panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = fmt.Errorf("extract %s: %v: %w", fileName, r, domain.ErrMalformedDocument)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %v: %w", fileName, err, domain.ErrMalformedDocument)
	}
	defer f.Close()

	for pageNo := 1; pageNo <= reader.NumPage(); pageNo++ {
		page := reader.Page(pageNo)
		if page.V.IsNull() {
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			// One unreadable page does not condemn the document.
			continue
		}
		for i, window := range ChunkText(raw, e.MaxChars, e.Overlap) {
			chunks = append(chunks, domain.Chunk{
				DocID:    docID,
				FileName: fileName,
				PageNo:   pageNo,
				ChunkNo:  i + 1,
				Text:     window,
			})
		}
	}
	return chunks, nil
}
