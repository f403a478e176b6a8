package handlers

import (
	"net/http"
	"strconv"
	"time"

	"walkgen-backend/internal/repository"
	"walkgen-backend/internal/services"
)

type BrowseHandler struct {
	walkthroughs *repository.WalkthroughRepo
	youtube      *services.YouTubeService
}

func NewBrowseHandler(walkthroughs *repository.WalkthroughRepo, youtube *services.YouTubeService) *BrowseHandler {
	return &BrowseHandler{walkthroughs: walkthroughs, youtube: youtube}
}

// Recent lists recently analyzed walkthroughs for the discover page.
func (h *BrowseHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20)

	results, err := h.walkthroughs.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list walkthroughs", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"walkthroughs": results})
}

// Popular lists the most-accessed walkthroughs.
func (h *BrowseHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 10)

	results, err := h.walkthroughs.Popular(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list walkthroughs", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"walkthroughs": results})
}

// Search searches cached walkthroughs by game, video title, or channel.
func (h *BrowseHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Query parameter 'q' is required", r))
		return
	}
	limit := parseLimit(r, 20)

	results, err := h.walkthroughs.Search(r.Context(), query, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Search failed", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"query": query, "walkthroughs": results})
}

// SearchVideos searches the YouTube catalog for walkthrough candidates that
// have not necessarily been analyzed yet.
func (h *BrowseHandler) SearchVideos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Query parameter 'q' is required", r))
		return
	}
	limit := parseLimit(r, 8)

	results, err := h.youtube.Search(r.Context(), query, int64(limit))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "YouTube search failed", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"query": query, "videos": results})
}

// Health reports service status plus cache statistics.
func (h *BrowseHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.walkthroughs.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to read cache stats", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cache":     stats,
	})
}

func parseLimit(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 50 {
		limit = 50
	}
	return limit
}
