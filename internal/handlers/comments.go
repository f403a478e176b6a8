package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"walkgen-backend/internal/models"
	"walkgen-backend/internal/repository"
)

type CommentHandler struct {
	comments *repository.CommentRepo
}

func NewCommentHandler(comments *repository.CommentRepo) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// Create adds an anonymous comment to a walkthrough segment.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Comment text is required", r))
		return
	}

	comment := &models.Comment{
		VideoID:   videoID,
		SegmentID: req.SegmentID,
		ParentID:  req.ParentID,
		Nickname:  req.Nickname,
		Text:      req.Text,
	}

	if err := h.comments.Create(r.Context(), comment); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create comment", r))
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// List returns a video's threaded comments, optionally for one segment.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	segmentID := -1
	if v := r.URL.Query().Get("segment_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "segment_id must be an integer", r))
			return
		}
		segmentID = n
	}

	comments, err := h.comments.ListByVideo(r.Context(), videoID, segmentID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list comments", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// ToggleReaction flips one session's emoji reaction on a comment.
func (h *CommentHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	commentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid comment id", r))
		return
	}

	var req models.ToggleReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Emoji == "" || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "emoji and session_id are required", r))
		return
	}

	counts, err := h.comments.ToggleReaction(r.Context(), commentID, req.Emoji, req.SessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to toggle reaction", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reactions": counts})
}
