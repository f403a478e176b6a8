package models

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobFetching  JobStatus = "fetching"
	JobAnalyzing JobStatus = "analyzing"
	JobComplete  JobStatus = "complete"
	JobError     JobStatus = "error"
)

// IsTerminal reports whether no further transition may leave the status.
func (s JobStatus) IsTerminal() bool {
	return s == JobComplete || s == JobError
}

// AnalysisJob tracks one analysis attempt from submission to a terminal state.
type AnalysisJob struct {
	JobID       string       `json:"job_id"`
	VideoID     string       `json:"video_id"`
	Status      JobStatus    `json:"status"`
	Progress    int          `json:"progress"`
	Message     string       `json:"message"`
	Walkthrough *Walkthrough `json:"walkthrough,omitempty"`
	Error       *string      `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// QueuedJob is the payload pushed onto the redis analysis queue.
type QueuedJob struct {
	JobID   string `json:"job_id"`
	VideoID string `json:"video_id"`
}

type AnalyzeRequest struct {
	URL string `json:"url"`
}

type AnalyzeResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

type JobStatusResponse struct {
	JobID       string       `json:"job_id"`
	Status      JobStatus    `json:"status"`
	Progress    int          `json:"progress"`
	Message     string       `json:"message"`
	Walkthrough *Walkthrough `json:"walkthrough,omitempty"`
	Error       *string      `json:"error,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
