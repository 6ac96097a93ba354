package rag

import "github.com/YojanaSetu/yojana-mvp/engine/domain"

// DefaultMinScore is the confidence floor. A top hit scoring below it means
// the corpus has nothing relevant, and answering anyway would invite the
// model to invent scheme details. Calibrated against the scheme PDF corpus;
// recalibrate when the embedding model changes.
const DefaultMinScore float32 = 0.22

// Outcome is the confidence gate decision for one retrieval.
type Outcome struct {
	// NotFound is true when the best hit scored below the floor (or there
	// were no hits at all).
	NotFound bool
	// BestScore is the top similarity, 0 when there was no evidence.
	BestScore float32
}

// Gate applies the confidence floor to scored evidence. Evidence must be in
// descending score order, as the searcher returns it. A best score exactly at
// the floor passes.
func Gate(evidence []domain.Evidence, minScore float32) Outcome {
	if len(evidence) == 0 {
		return Outcome{NotFound: true}
	}
	best := evidence[0].Score
	return Outcome{NotFound: best < minScore, BestScore: best}
}
