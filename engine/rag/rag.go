// Package rag orchestrates the online advise pipeline: validate the citizen
// profile, embed the folded query, retrieve the nearest chunks, apply the
// confidence gate, attach curated application links, and ask the answerer for
// a grounded reply.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/YojanaSetu/yojana-mvp/engine/embed"
	"github.com/YojanaSetu/yojana-mvp/engine/links"
	"github.com/YojanaSetu/yojana-mvp/pkg/resilience"
)

// Searcher abstracts nearest-neighbor search. The local flat store and the
// Qdrant store both satisfy it.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]domain.Evidence, error)
}

// Answerer produces the final grounded reply. Satisfied by ollama.ChatClient.
type Answerer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options configures the advise pipeline.
type Options struct {
	TopK          int
	MinScore      float32
	AnswerTimeout time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          5,
		MinScore:      DefaultMinScore,
		AnswerTimeout: 30 * time.Second,
	}
}

// Service is the advise orchestrator.
type Service struct {
	encoder  embed.Embedder
	searcher Searcher
	answerer Answerer
	links    []domain.SchemeLink
	limiter  *resilience.Limiter
	opts     Options
	logger   *slog.Logger
}

// New creates a Service. answerer may be nil when no chat backend is
// configured; advise then degrades to evidence and links only. limiter may be
// nil to leave answerer calls unthrottled.
func New(encoder embed.Embedder, searcher Searcher, answerer Answerer, linkDB []domain.SchemeLink, limiter *resilience.Limiter, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.MinScore == 0 {
		opts.MinScore = DefaultMinScore
	}
	if opts.AnswerTimeout <= 0 {
		opts.AnswerTimeout = DefaultOptions().AnswerTimeout
	}
	return &Service{
		encoder:  encoder,
		searcher: searcher,
		answerer: answerer,
		links:    linkDB,
		limiter:  limiter,
		opts:     opts,
		logger:   logger,
	}
}

// Advice is the structured result of one advise call.
type Advice struct {
	Answer    string              `json:"answer"`
	NotFound  bool                `json:"not_found"`
	BestScore float32             `json:"best_score"`
	Evidence  []domain.Evidence   `json:"evidence"`
	Links     []domain.SchemeLink `json:"links"`
}

// MaxTopK caps the per-request result count.
const MaxTopK = 20

// Advise runs the pipeline for one citizen profile and optional free-text
// question. topK <= 0 falls back to the configured default. When the answerer
// fails or is absent, the returned Advice still carries the evidence and
// links alongside an error wrapping domain.ErrAnswererUnavailable; callers
// decide whether to serve the degraded result.
func (s *Service) Advise(ctx context.Context, profile domain.Profile, question string, topK int) (*Advice, error) {
	if err := domain.ValidateProfile(profile); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.opts.TopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	query := profile.QueryText(question)
	s.logger.Info("advise start", "state", profile.State, "query_len", len(query))

	vecs, err := s.encoder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("rag: embed query: got %d vectors, want 1", len(vecs))
	}
	qvec := embed.Normalize(vecs[0])

	evidence, err := s.searcher.Search(ctx, qvec, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}

	outcome := Gate(evidence, s.opts.MinScore)
	if outcome.NotFound {
		s.logger.Info("advise below confidence floor", "best_score", outcome.BestScore)
		return &Advice{NotFound: true, BestScore: outcome.BestScore}, nil
	}

	advice := &Advice{
		BestScore: outcome.BestScore,
		Evidence:  evidence,
		Links:     links.Match(evidence, s.links),
	}

	answer, err := s.answer(ctx, profile, question, evidence)
	if err != nil {
		s.logger.Warn("advise answerer failed", "err", err)
		return advice, err
	}
	advice.Answer = answer

	s.logger.Info("advise done", "best_score", outcome.BestScore,
		"evidence", len(evidence), "links", len(advice.Links))
	return advice, nil
}

func (s *Service) answer(ctx context.Context, profile domain.Profile, question string, evidence []domain.Evidence) (string, error) {
	if s.answerer == nil {
		return "", fmt.Errorf("rag: no answerer configured: %w", domain.ErrAnswererUnavailable)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return "", fmt.Errorf("rag: %w: %w", resilience.ErrRateLimited, domain.ErrAnswererUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.AnswerTimeout)
	defer cancel()

	answer, err := s.answerer.Complete(ctx, systemPrompt, buildUserPrompt(profile, question, evidence))
	if err != nil {
		return "", fmt.Errorf("rag: answer: %v: %w", err, domain.ErrAnswererUnavailable)
	}
	return answer, nil
}
