package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"walkgen-backend/internal/middleware"
	"walkgen-backend/internal/models"
	"walkgen-backend/internal/repository"
	"walkgen-backend/internal/services"
	"walkgen-backend/internal/worker"
)

type AnalyzeHandler struct {
	registry     *worker.Registry
	walkthroughs *repository.WalkthroughRepo
	redis        *redis.Client
}

func NewAnalyzeHandler(registry *worker.Registry, walkthroughs *repository.WalkthroughRepo, redisClient *redis.Client) *AnalyzeHandler {
	return &AnalyzeHandler{
		registry:     registry,
		walkthroughs: walkthroughs,
		redis:        redisClient,
	}
}

// Analyze starts analyzing a YouTube gameplay video. The cache is checked
// first — an already-analyzed video returns instantly with no API costs —
// then the registry, so a video with an analysis in flight is never billed
// twice.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	videoID := services.ExtractVideoID(req.URL)
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid YouTube URL", r))
		return
	}

	cached, err := h.walkthroughs.Get(r.Context(), videoID)
	if err != nil {
		log.Printf("cache lookup error for %s, proceeding as miss: %v", videoID, err)
	}
	if cached != nil {
		jobID := cached.ID
		if jobID == "" {
			jobID = videoID[:8]
		}
		h.registry.AddCompleted(jobID, videoID, cached)
		writeJSON(w, http.StatusOK, models.AnalyzeResponse{
			JobID:   jobID,
			Status:  models.JobComplete,
			Message: "This video was already analyzed. Loading from cache.",
		})
		return
	}

	job, existing := h.registry.Claim(videoID)
	if existing {
		message := "Analysis already in progress."
		if job.Status == models.JobComplete {
			message = "Already analyzed."
		}
		writeJSON(w, http.StatusOK, models.AnalyzeResponse{
			JobID:   job.JobID,
			Status:  job.Status,
			Message: message,
		})
		return
	}

	queued, _ := json.Marshal(models.QueuedJob{JobID: job.JobID, VideoID: videoID})
	if err := h.redis.LPush(r.Context(), worker.AnalysisQueue, string(queued)).Err(); err != nil {
		h.registry.SetError(job.JobID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue analysis job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, models.AnalyzeResponse{
		JobID:   job.JobID,
		Status:  models.JobQueued,
		Message: "Analysis started. Poll /api/status/{job_id} for progress.",
	})
}

// Status reports an analysis job's progress.
func (h *AnalyzeHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, ok := h.registry.Get(jobID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	resp := models.JobStatusResponse{
		JobID:    job.JobID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
		Error:    job.Error,
	}
	if job.Status == models.JobComplete {
		resp.Walkthrough = job.Walkthrough
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetWalkthrough returns the completed walkthrough for a job.
func (h *AnalyzeHandler) GetWalkthrough(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, ok := h.registry.Get(jobID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	if job.Status != models.JobComplete {
		writeJSON(w, http.StatusAccepted, errorResp("IN_PROGRESS", "Still in progress: "+string(job.Status), r))
		return
	}

	if job.Walkthrough == nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Walkthrough data missing", r))
		return
	}

	writeJSON(w, http.StatusOK, job.Walkthrough)
}

// Shared response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	}
}
