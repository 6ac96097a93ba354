package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
	"github.com/YojanaSetu/yojana-mvp/engine/rag"
	"github.com/YojanaSetu/yojana-mvp/pkg/metrics"
)

type fakeAdviser struct {
	advice *rag.Advice
	err    error
}

func (f *fakeAdviser) Advise(context.Context, domain.Profile, string, int) (*rag.Advice, error) {
	return f.advice, f.err
}

func postAdvise(t *testing.T, svc adviser, body string) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	h := handleAdvise(svc, metrics.New(), logger)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/advise", strings.NewReader(body)))
	return rec
}

const validBody = `{"state":"telangana","age":30,"annual_income":100000,"category":"sc","language":"en"}`

func TestHandleAdvise_OK(t *testing.T) {
	svc := &fakeAdviser{advice: &rag.Advice{
		Answer:    "Aasara pension details",
		BestScore: 0.8,
		Evidence:  []domain.Evidence{{Chunk: domain.Chunk{DocID: "go_43"}, Score: 0.8}},
	}}
	rec := postAdvise(t, svc, validBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp AdviseResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer == "" || resp.NotFound || len(resp.Evidence) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleAdvise_BadBody(t *testing.T) {
	rec := postAdvise(t, &fakeAdviser{}, "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleAdvise_ValidationError(t *testing.T) {
	svc := &fakeAdviser{err: domain.NewValidationError("state", "karnataka", domain.ErrUnsupportedState)}
	rec := postAdvise(t, svc, validBody)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported state") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleAdvise_IndexNotBuilt(t *testing.T) {
	svc := &fakeAdviser{err: fmt.Errorf("rag: search: %w", domain.ErrIndexNotBuilt)}
	rec := postAdvise(t, svc, validBody)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "run the indexer") {
		t.Errorf("missing remediation text: %s", rec.Body.String())
	}
}

func TestHandleAdvise_DegradedStillServesEvidence(t *testing.T) {
	svc := &fakeAdviser{
		advice: &rag.Advice{
			BestScore: 0.5,
			Evidence:  []domain.Evidence{{Chunk: domain.Chunk{DocID: "go_43"}, Score: 0.5}},
			Links:     []domain.SchemeLink{{SchemeID: "aasara"}},
		},
		err: fmt.Errorf("rag: %w", domain.ErrAnswererUnavailable),
	}
	rec := postAdvise(t, svc, validBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp AdviseResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Warning == "" || len(resp.Evidence) != 1 || len(resp.Links) != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Answer != "" {
		t.Errorf("degraded response must have no answer, got %q", resp.Answer)
	}
}

func TestHandleHealth_NoIndex(t *testing.T) {
	h := handleHealth(&storeHolder{})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"index_loaded":false`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStoreHolder_EmptyIsNotBuilt(t *testing.T) {
	h := &storeHolder{}
	if _, err := h.Search(context.Background(), []float32{1}, 1); err != domain.ErrIndexNotBuilt {
		t.Fatalf("err = %v", err)
	}
}
