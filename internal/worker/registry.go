package worker

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"walkgen-backend/internal/models"
)

// Registry is the process-wide job table, read by the request path and
// written by the workers. One mutex guards everything; in particular the
// duplicate-check-then-create sequence in Claim is a single critical
// section, which is what makes the at-most-one-in-flight-analysis-per-video
// guarantee hold under concurrent submissions.
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]*models.AnalysisJob
	byVideo map[string]string // video id -> most recent job id
}

func NewRegistry() *Registry {
	return &Registry{
		jobs:    make(map[string]*models.AnalysisJob),
		byVideo: make(map[string]string),
	}
}

func newJobID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// Claim returns the existing non-error job for the video if one is being
// tracked, otherwise creates a fresh queued job. The second return reports
// whether the job already existed.
func (r *Registry) Claim(videoID string) (models.AnalysisJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if jobID, ok := r.byVideo[videoID]; ok {
		if job, ok := r.jobs[jobID]; ok && job.Status != models.JobError {
			return *job, true
		}
	}

	job := &models.AnalysisJob{
		JobID:     newJobID(),
		VideoID:   videoID,
		Status:    models.JobQueued,
		Progress:  0,
		Message:   "Queued for analysis...",
		CreatedAt: time.Now().UTC(),
	}
	r.jobs[job.JobID] = job
	r.byVideo[videoID] = job.JobID
	return *job, false
}

// AddCompleted registers an already-complete job referencing a cached
// walkthrough, so the polling endpoints work for cache hits too.
func (r *Registry) AddCompleted(jobID, videoID string, w *models.Walkthrough) models.AnalysisJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := &models.AnalysisJob{
		JobID:       jobID,
		VideoID:     videoID,
		Status:      models.JobComplete,
		Progress:    100,
		Message:     "Loaded from cache.",
		Walkthrough: w,
		CreatedAt:   time.Now().UTC(),
	}
	r.jobs[jobID] = job
	r.byVideo[videoID] = jobID
	return *job
}

// Get returns a snapshot of the job, if known.
func (r *Registry) Get(jobID string) (models.AnalysisJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return models.AnalysisJob{}, false
	}
	return *job, true
}

// SetProgress advances a job's status, progress and message. Terminal jobs
// are never modified, and progress never moves backwards.
func (r *Registry) SetProgress(jobID string, status models.JobStatus, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status.IsTerminal() {
		return
	}

	job.Status = status
	if progress > job.Progress {
		job.Progress = progress
	}
	job.Message = message
}

// SetResult moves a job to the terminal complete state with its walkthrough.
func (r *Registry) SetResult(jobID string, w *models.Walkthrough) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status.IsTerminal() {
		return
	}

	job.Status = models.JobComplete
	job.Progress = 100
	job.Message = "Analysis complete! Result cached for instant future access."
	job.Walkthrough = w
}

// SetError moves a job to the terminal error state. The user-facing message
// is fixed; the raw cause is preserved for diagnostics.
func (r *Registry) SetError(jobID string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status.IsTerminal() {
		return
	}

	detail := cause.Error()
	job.Status = models.JobError
	job.Progress = 0
	job.Message = "Analysis failed."
	job.Error = &detail
}
