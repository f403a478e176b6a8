package models

import "time"

// Comment is an anonymous comment attached to a walkthrough segment.
// Replies are threaded one level deep via ParentID.
type Comment struct {
	ID        int64          `json:"id"`
	VideoID   string         `json:"video_id"`
	SegmentID int            `json:"segment_id"`
	ParentID  *int64         `json:"parent_id"`
	Nickname  string         `json:"nickname"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"created_at"`
	Reactions map[string]int `json:"reactions"`
	Replies   []*Comment     `json:"replies"`
}

type CreateCommentRequest struct {
	SegmentID int    `json:"segment_id"`
	ParentID  *int64 `json:"parent_id"`
	Nickname  string `json:"nickname"`
	Text      string `json:"text"`
}

type ToggleReactionRequest struct {
	Emoji     string `json:"emoji"`
	SessionID string `json:"session_id"`
}
