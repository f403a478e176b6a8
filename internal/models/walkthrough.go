package models

import "time"

type SegmentType string

const (
	SegmentBoss        SegmentType = "boss"
	SegmentPuzzle      SegmentType = "puzzle"
	SegmentExploration SegmentType = "exploration"
	SegmentCollectible SegmentType = "collectible"
	SegmentCutscene    SegmentType = "cutscene"
	SegmentCombat      SegmentType = "combat"
	SegmentTutorial    SegmentType = "tutorial"
)

// Difficulty is only meaningful for boss/puzzle/combat/tutorial segments.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very hard"
	DifficultyExtreme  Difficulty = "extreme"
)

// ValidDifficulties is the closed set accepted from the model.
var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:     true,
	DifficultyMedium:   true,
	DifficultyHard:     true,
	DifficultyVeryHard: true,
	DifficultyExtreme:  true,
}

// NoDifficultyTypes are the segment types whose difficulty is always null.
var NoDifficultyTypes = map[SegmentType]bool{
	SegmentExploration: true,
	SegmentCollectible: true,
	SegmentCutscene:    true,
}

type VideoMetadata struct {
	VideoID         string  `json:"video_id"`
	Title           string  `json:"title"`
	Channel         string  `json:"channel"`
	DurationSeconds int     `json:"duration_seconds"`
	DurationLabel   string  `json:"duration_label"`
	Platform        string  `json:"platform"`
	ThumbnailURL    *string `json:"thumbnail_url"`
	GameTitle       *string `json:"game_title"`
}

// TranscriptEntry is one caption cue on the video timeline.
type TranscriptEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// SegmentProposal is an untrusted segment as returned by the model.
// Ordering, coverage and overlap are not guaranteed until normalization.
type SegmentProposal struct {
	Type         string   `json:"type"`
	Label        string   `json:"label"`
	StartSeconds *float64 `json:"start_seconds"`
	EndSeconds   *float64 `json:"end_seconds"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Difficulty   *string  `json:"difficulty"`
}

// Segment is the validated counterpart of SegmentProposal.
type Segment struct {
	ID           int         `json:"id"`
	Type         SegmentType `json:"type"`
	Label        string      `json:"label"`
	StartSeconds int         `json:"start_seconds"`
	EndSeconds   int         `json:"end_seconds"`
	StartLabel   string      `json:"start_label"`
	EndLabel     string      `json:"end_label"`
	Description  string      `json:"description"`
	Tags         []string    `json:"tags"`
	Difficulty   *Difficulty `json:"difficulty"`
}

type Walkthrough struct {
	ID            string        `json:"id"`
	Video         VideoMetadata `json:"video"`
	Segments      []Segment     `json:"segments"`
	Summary       string        `json:"summary"`
	TotalSegments int           `json:"total_segments"`
}

// WalkthroughSummary is the listing projection used by the browse endpoints.
type WalkthroughSummary struct {
	VideoID       string    `json:"video_id"`
	JobID         string    `json:"job_id"`
	VideoTitle    string    `json:"video_title"`
	Channel       string    `json:"channel"`
	GameTitle     string    `json:"game_title"`
	DurationLabel string    `json:"duration_label"`
	ThumbnailURL  *string   `json:"thumbnail_url"`
	TotalSegments int       `json:"total_segments"`
	AccessCount   int       `json:"access_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type SearchResult struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	Channel         string `json:"channel"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds"`
	DurationLabel   string `json:"duration_label"`
	Views           uint64 `json:"views"`
	URL             string `json:"url"`
}

type GameCount struct {
	Game  string `json:"game"`
	Count int    `json:"count"`
}

type CacheStats struct {
	TotalCached    int         `json:"total_cached"`
	TotalCacheHits int         `json:"total_cache_hits"`
	TopGames       []GameCount `json:"top_games"`
}
