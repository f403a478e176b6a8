package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"walkgen-backend/internal/models"
	"walkgen-backend/internal/repository"
	"walkgen-backend/internal/services"
)

// AnalysisQueue is the redis list the request path pushes jobs onto.
const AnalysisQueue = "queue:video-analysis"

const jobTimeout = 10 * time.Minute

type Pool struct {
	redis        *redis.Client
	registry     *Registry
	youtube      *services.YouTubeService
	transcripts  *services.TranscriptService
	analyzer     *services.AnalyzerService
	walkthroughs *repository.WalkthroughRepo
	workerCount  int
	stopChan     chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	registry *Registry,
	youtube *services.YouTubeService,
	transcripts *services.TranscriptService,
	analyzer *services.AnalyzerService,
	walkthroughs *repository.WalkthroughRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:        redisClient,
		registry:     registry,
		youtube:      youtube,
		transcripts:  transcripts,
		analyzer:     analyzer,
		walkthroughs: walkthroughs,
		workerCount:  workerCount,
		stopChan:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d analysis worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, AnalysisQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.QueuedJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse queued job: %v", id, err)
			continue
		}

		// Guard against double delivery from the queue
		lockKey := fmt.Sprintf("job_lock:%s", job.JobID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", jobTimeout).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: analyzing video %s (job %s)", id, job.VideoID, job.JobID)

		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		p.runAnalysis(jobCtx, job)
		cancel()

		p.redis.Del(ctx, lockKey)
	}
}

// runAnalysis drives one job through the full pipeline:
// metadata -> transcript -> AI segmentation -> normalization -> cache.
// Steps run strictly in sequence; any unrecovered failure moves the job to
// its terminal error state. Failed jobs are never retried automatically —
// a fresh client submission re-runs the pipeline.
func (p *Pool) runAnalysis(ctx context.Context, job models.QueuedJob) {
	// Step 1: Fetch metadata
	p.registry.SetProgress(job.JobID, models.JobFetching, 10, "Fetching video metadata from YouTube...")

	metadata, err := p.youtube.GetMetadata(ctx, job.VideoID)
	if err != nil {
		p.fail(job.JobID, fmt.Errorf("metadata fetch failed: %w", err))
		return
	}

	p.registry.SetProgress(job.JobID, models.JobFetching, 20, "Found: "+metadata.Title)

	// Step 2: Fetch transcript
	p.registry.SetProgress(job.JobID, models.JobFetching, 30, "Extracting video transcript...")

	entries, err := p.transcripts.GetTranscript(ctx, job.VideoID)
	if err != nil {
		p.fail(job.JobID, err)
		return
	}

	formatted := services.FormatTranscript(entries)
	if formatted == "" {
		p.fail(job.JobID, services.ErrNoTranscript)
		return
	}

	p.registry.SetProgress(job.JobID, models.JobFetching, 45,
		fmt.Sprintf("Transcript: %d entries. Sending to AI...", len(entries)))

	// Step 3: AI analysis
	p.registry.SetProgress(job.JobID, models.JobAnalyzing, 50, "AI is analyzing gameplay segments...")

	result, err := p.analyzer.Analyze(ctx, formatted, metadata)
	if err != nil {
		p.fail(job.JobID, err)
		return
	}

	p.registry.SetProgress(job.JobID, models.JobAnalyzing, 90,
		fmt.Sprintf("Found %d segments. Saving...", len(result.Proposals)))

	// Step 4: Normalize and assemble
	segments := services.NormalizeSegments(result.Proposals, metadata.DurationSeconds)

	if result.GameTitle != "" {
		metadata.GameTitle = &result.GameTitle
	}

	walkthrough := &models.Walkthrough{
		ID:            job.JobID,
		Video:         *metadata,
		Segments:      segments,
		Summary:       result.Summary,
		TotalSegments: len(segments),
	}

	// Step 5: Save to cache
	if err := p.walkthroughs.Save(ctx, job.VideoID, job.JobID, walkthrough); err != nil {
		p.fail(job.JobID, err)
		return
	}

	p.registry.SetResult(job.JobID, walkthrough)
	log.Printf("Job %s complete + cached: %d segments", job.JobID, len(segments))
}

func (p *Pool) fail(jobID string, err error) {
	log.Printf("Job %s failed: %v", jobID, err)
	p.registry.SetError(jobID, err)
}
