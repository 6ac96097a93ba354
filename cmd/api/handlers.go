package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/YojanaSetu/yojana-mvp/engine/ingest"
	"github.com/YojanaSetu/yojana-mvp/engine/rag"
	"github.com/YojanaSetu/yojana-mvp/pkg/metrics"
)

// adviser is what the advise handler needs from the rag service.
type adviser interface {
	Advise(ctx context.Context, profile domain.Profile, question string, topK int) (*rag.Advice, error)
}

// AdviseRequest is the JSON body for POST /api/advise.
type AdviseRequest struct {
	State        string `json:"state"`
	Age          int    `json:"age"`
	AnnualIncome int    `json:"annual_income"`
	Category     string `json:"category"`
	Language     string `json:"language"`
	Question     string `json:"question,omitempty"`
	TopK         int    `json:"top_k,omitempty"`
}

// AdviseResponse is the JSON response for POST /api/advise.
type AdviseResponse struct {
	Answer    string              `json:"answer"`
	NotFound  bool                `json:"not_found"`
	BestScore float32             `json:"best_score"`
	Evidence  []domain.Evidence   `json:"evidence"`
	Links     []domain.SchemeLink `json:"links"`
	Warning   string              `json:"warning,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleHealth(holder *storeHolder) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"index_loaded": holder.ptr.Load() != nil,
			"chunks":       holder.len(),
		})
	}
}

func handleAdvise(svc adviser, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdviseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile := domain.Profile{
			State:        req.State,
			Age:          req.Age,
			AnnualIncome: req.AnnualIncome,
			Category:     req.Category,
			Language:     req.Language,
		}

		advice, err := svc.Advise(r.Context(), profile, req.Question, req.TopK)
		outcome := "ok"
		defer func() {
			reg.Counter(metrics.WithLabels("advise_requests_total", "outcome", outcome),
				"Advise requests by outcome").Inc()
		}()

		switch {
		case err == nil:
		case errors.As(err, new(*domain.ValidationError)):
			outcome = "invalid"
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, domain.ErrIndexNotBuilt):
			outcome = "no_index"
			writeError(w, http.StatusServiceUnavailable, domain.ErrIndexNotBuilt.Error())
			return
		case errors.Is(err, domain.ErrAnswererUnavailable):
			// Evidence and links are still served; only the narrative is
			// degraded.
			outcome = "degraded"
			writeJSON(w, http.StatusOK, AdviseResponse{
				NotFound:  advice.NotFound,
				BestScore: advice.BestScore,
				Evidence:  advice.Evidence,
				Links:     advice.Links,
				Warning:   domain.ErrAnswererUnavailable.Error(),
			})
			return
		default:
			outcome = "error"
			logger.Error("advise failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if advice.NotFound {
			outcome = "not_found"
		}
		writeJSON(w, http.StatusOK, AdviseResponse{
			Answer:    advice.Answer,
			NotFound:  advice.NotFound,
			BestScore: advice.BestScore,
			Evidence:  advice.Evidence,
			Links:     advice.Links,
		})
	}
}

func handleRebuild(nc *nats.Conn, dataDir string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := ingest.RebuildRequest{DataDir: dataDir, Reason: "api"}
		if err := ingest.PublishRebuild(r.Context(), nc, req); err != nil {
			logger.Error("rebuild publish failed", "err", err)
			writeError(w, http.StatusBadGateway, "rebuild queue unavailable")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}
