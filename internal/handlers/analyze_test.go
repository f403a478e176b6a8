package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"walkgen-backend/internal/models"
	"walkgen-backend/internal/worker"
)

func newStatusRequest(jobID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/status/"+jobID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", jobID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAnalyzeHandler_InvalidBody(t *testing.T) {
	h := NewAnalyzeHandler(worker.NewRegistry(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.Analyze(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
	}
}

func TestAnalyzeHandler_InvalidURL(t *testing.T) {
	h := NewAnalyzeHandler(worker.NewRegistry(), nil, nil)

	tests := []string{
		"",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=short",
	}

	for _, url := range tests {
		body, _ := json.Marshal(models.AnalyzeRequest{URL: url})

		req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		h.Analyze(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("URL %q: expected 400, got %d", url, rr.Code)
		}
	}
}

func TestStatusHandler_UnknownJob(t *testing.T) {
	h := NewAnalyzeHandler(worker.NewRegistry(), nil, nil)

	rr := httptest.NewRecorder()
	h.Status(rr, newStatusRequest("deadbeef"))

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestStatusHandler_InProgressOmitsWalkthrough(t *testing.T) {
	registry := worker.NewRegistry()
	h := NewAnalyzeHandler(registry, nil, nil)

	job, _ := registry.Claim("dQw4w9WgXcQ")
	registry.SetProgress(job.JobID, models.JobAnalyzing, 50, "Analyzing transcript with AI...")

	rr := httptest.NewRecorder()
	h.Status(rr, newStatusRequest(job.JobID))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp models.JobStatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != models.JobAnalyzing || resp.Progress != 50 {
		t.Errorf("Expected analyzing/50, got %s/%d", resp.Status, resp.Progress)
	}
	if resp.Walkthrough != nil {
		t.Error("Expected no walkthrough before completion")
	}
}

func TestStatusHandler_CompleteIncludesWalkthrough(t *testing.T) {
	registry := worker.NewRegistry()
	h := NewAnalyzeHandler(registry, nil, nil)

	job, _ := registry.Claim("dQw4w9WgXcQ")
	game := "Elden Ring"
	registry.SetResult(job.JobID, &models.Walkthrough{
		ID:    job.JobID,
		Video: models.VideoMetadata{VideoID: "dQw4w9WgXcQ", GameTitle: &game},
	})

	rr := httptest.NewRecorder()
	h.Status(rr, newStatusRequest(job.JobID))

	var resp models.JobStatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Walkthrough == nil {
		t.Fatal("Expected walkthrough in completed status response")
	}
	if resp.Walkthrough.Video.GameTitle == nil || *resp.Walkthrough.Video.GameTitle != "Elden Ring" {
		t.Error("Expected game title 'Elden Ring' in completed walkthrough")
	}
}

func TestGetWalkthroughHandler_InProgress(t *testing.T) {
	registry := worker.NewRegistry()
	h := NewAnalyzeHandler(registry, nil, nil)

	job, _ := registry.Claim("dQw4w9WgXcQ")

	rr := httptest.NewRecorder()
	h.GetWalkthrough(rr, newStatusRequest(job.JobID))

	if rr.Code != http.StatusAccepted {
		t.Errorf("Expected 202 for in-progress job, got %d", rr.Code)
	}
}

func TestGetWalkthroughHandler_Complete(t *testing.T) {
	registry := worker.NewRegistry()
	h := NewAnalyzeHandler(registry, nil, nil)

	w := &models.Walkthrough{ID: "cachehit1", Video: models.VideoMetadata{VideoID: "dQw4w9WgXcQ"}}
	registry.AddCompleted("cachehit1", "dQw4w9WgXcQ", w)

	rr := httptest.NewRecorder()
	h.GetWalkthrough(rr, newStatusRequest("cachehit1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var got models.Walkthrough
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode walkthrough: %v", err)
	}
	if got.Video.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("Expected video id preserved, got %q", got.Video.VideoID)
	}
}
