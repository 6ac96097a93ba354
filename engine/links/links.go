// Package links maps retrieved evidence back to the curated table of official
// scheme links. Matching is pure rule evaluation over curated identifiers,
// never semantic, so an application link can only surface when a curated key
// ties it to evidence that was actually retrieved.
package links

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
)

// Load reads the scheme links database. A missing file is not an error: the
// matcher simply has nothing to match against and returns empty results.
func Load(path string) ([]domain.SchemeLink, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("links: read %s: %w", path, err)
	}
	var entries []domain.SchemeLink
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("links: parse %s: %w", path, err)
	}
	return entries, nil
}

// Write persists the links database as a JSON array.
func Write(path string, entries []domain.SchemeLink) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("links: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("links: write %s: %w", path, err)
	}
	return nil
}

// Match returns the subsequence of entries tied to the evidence, in the
// original entry order with no duplicates. Per entry the rules are tried in
// order and the first hit includes the entry:
//
//  1. any declared doc_id equals any evidence doc_id,
//  2. any declared file_name equals any evidence file_name,
//  3. the scheme name is a substring of any evidence file_name.
//
// All comparisons are case-insensitive. Each rule is independently
// sufficient; rule 3 is a deliberately coarse fallback for entries with no
// curated keys.
func Match(evidence []domain.Evidence, entries []domain.SchemeLink) []domain.SchemeLink {
	if len(entries) == 0 || len(evidence) == 0 {
		return nil
	}

	evDocIDs := make(map[string]bool, len(evidence))
	evFiles := make(map[string]bool, len(evidence))
	for _, e := range evidence {
		evDocIDs[strings.ToLower(e.DocID)] = true
		evFiles[strings.ToLower(e.FileName)] = true
	}

	var matched []domain.SchemeLink
	for _, entry := range entries {
		if matchesEntry(entry, evDocIDs, evFiles) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func matchesEntry(entry domain.SchemeLink, evDocIDs, evFiles map[string]bool) bool {
	for _, id := range entry.DocIDs {
		if evDocIDs[strings.ToLower(id)] {
			return true
		}
	}
	for _, name := range entry.FileNames {
		if evFiles[strings.ToLower(name)] {
			return true
		}
	}
	name := strings.ToLower(entry.SchemeName)
	if name == "" {
		return false
	}
	for f := range evFiles {
		if strings.Contains(f, name) {
			return true
		}
	}
	return false
}
