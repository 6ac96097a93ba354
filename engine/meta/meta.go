// Package meta persists the chunk metadata table that parallels the vector
// index. Row order is the contract: row i describes the vector at index
// position i, so the file is written append-only in insertion order and
// replaced atomically on rebuild.
package meta

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
)

// Save writes one JSON row per chunk to path, via temp file + rename so a
// concurrent reader never sees a partial table.
func Save(path string, rows []domain.Chunk) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".meta-*")
	if err != nil {
		return fmt.Errorf("meta: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("meta: encode row %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("meta: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("meta: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("meta: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("meta: rename: %w", err)
	}
	return nil
}

// Load reads the full metadata table. A missing file is
// domain.ErrIndexNotBuilt: metadata and index are built together, so either
// both artifacts exist or the build step has not run.
func Load(path string) ([]domain.Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("meta: %s: %w", path, domain.ErrIndexNotBuilt)
		}
		return nil, fmt.Errorf("meta: open: %w", err)
	}
	defer file.Close()

	var rows []domain.Chunk
	dec := json.NewDecoder(bufio.NewReader(file))
	for dec.More() {
		var row domain.Chunk
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("meta: decode row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
