// Package domain defines core domain types, constants, and validation for the
// Yojana engine. It acts as the validation gate at pipeline entry points.
package domain

import (
	"fmt"
	"strings"
)

// Chunk is a contiguous, normalized slice of one document page. It is the unit
// of indexing and retrieval; its position in the metadata store is the join key
// against the vector index.
type Chunk struct {
	DocID    string `json:"doc_id"`
	FileName string `json:"file_name"`
	PageNo   int    `json:"page_no"`
	ChunkNo  int    `json:"chunk_no"`
	Text     string `json:"text"`
}

// Evidence is a retrieval hit: a chunk paired with its inner-product similarity
// to the query. Ephemeral, never persisted.
type Evidence struct {
	Chunk
	Score float32 `json:"score"`
}

// Profile is the per-query user context folded into the retrieval query and
// passed to the answerer. Not persisted.
type Profile struct {
	State        string `json:"state"`
	Age          int    `json:"age"`
	AnnualIncome int    `json:"annual_income"`
	Category     string `json:"category"`
	Language     string `json:"language"`
}

// QueryText folds the profile and an optional keyword hint into the free-text
// string that gets embedded for retrieval.
func (p Profile) QueryText(hint string) string {
	q := fmt.Sprintf("%s age %d income %d category %s", p.State, p.Age, p.AnnualIncome, p.Category)
	if hint = strings.TrimSpace(hint); hint != "" {
		q += " " + hint
	}
	return q
}

// SchemeLink is one curated record in the official links database. DocIDs and
// FileNames are matching keys only; they never drive retrieval.
type SchemeLink struct {
	SchemeID    string   `json:"scheme_id"`
	SchemeName  string   `json:"scheme_name"`
	State       string   `json:"state"`
	ApplyLink   string   `json:"apply_link,omitempty"`
	SourceLinks []string `json:"source_links"`
	DocIDs      []string `json:"doc_ids,omitempty"`
	FileNames   []string `json:"file_names,omitempty"`
}
