package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"walkgen-backend/internal/models"
)

// WalkthroughRepo is the content-addressed result cache. One row per video
// id; a cache hit bumps the access stats as a side effect.
type WalkthroughRepo struct {
	pool *pgxpool.Pool
}

func NewWalkthroughRepo(pool *pgxpool.Pool) *WalkthroughRepo {
	return &WalkthroughRepo{pool: pool}
}

// Get looks up a cached walkthrough by video id. On a hit the access
// counter and last-accessed timestamp are bumped in the same statement, so
// concurrent hits never lose an increment. A miss returns (nil, nil).
func (r *WalkthroughRepo) Get(ctx context.Context, videoID string) (*models.Walkthrough, error) {
	var dataJSON []byte
	err := r.pool.QueryRow(ctx,
		`UPDATE walkthroughs
		 SET access_count = access_count + 1, last_accessed = NOW()
		 WHERE video_id = $1
		 RETURNING data_json`,
		videoID,
	).Scan(&dataJSON)

	if errors.Is(err, pgx.ErrNoRows) {
		log.Printf("Cache MISS for video %s", videoID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed for %s: %w", videoID, err)
	}

	var w models.Walkthrough
	if err := json.Unmarshal(dataJSON, &w); err != nil {
		return nil, fmt.Errorf("corrupt cached walkthrough for %s: %w", videoID, err)
	}

	r.recordEvent(ctx, videoID, "cache_hit")
	log.Printf("Cache HIT for video %s", videoID)
	return &w, nil
}

// Save upserts a completed walkthrough, keyed by video id. Last write wins;
// access stats reset with the new result.
func (r *WalkthroughRepo) Save(ctx context.Context, videoID, jobID string, w *models.Walkthrough) error {
	dataJSON, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to serialize walkthrough: %w", err)
	}

	gameTitle := ""
	if w.Video.GameTitle != nil {
		gameTitle = *w.Video.GameTitle
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO walkthroughs
		   (video_id, job_id, video_title, channel, game_title,
		    duration_seconds, duration_label, thumbnail_url,
		    summary, total_segments, data_json, created_at, access_count, last_accessed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), 1, NOW())
		 ON CONFLICT (video_id) DO UPDATE SET
		   job_id = EXCLUDED.job_id,
		   video_title = EXCLUDED.video_title,
		   channel = EXCLUDED.channel,
		   game_title = EXCLUDED.game_title,
		   duration_seconds = EXCLUDED.duration_seconds,
		   duration_label = EXCLUDED.duration_label,
		   thumbnail_url = EXCLUDED.thumbnail_url,
		   summary = EXCLUDED.summary,
		   total_segments = EXCLUDED.total_segments,
		   data_json = EXCLUDED.data_json,
		   created_at = NOW(),
		   access_count = 1,
		   last_accessed = NOW()`,
		videoID, jobID, w.Video.Title, w.Video.Channel, gameTitle,
		w.Video.DurationSeconds, w.Video.DurationLabel, w.Video.ThumbnailURL,
		w.Summary, w.TotalSegments, dataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to cache walkthrough for %s: %w", videoID, err)
	}

	r.recordEvent(ctx, videoID, "analyzed")
	log.Printf("Cached walkthrough for video %s (%d segments)", videoID, w.TotalSegments)
	return nil
}

// Recent lists walkthroughs by last access, newest first.
func (r *WalkthroughRepo) Recent(ctx context.Context, limit int) ([]models.WalkthroughSummary, error) {
	return r.list(ctx,
		`SELECT video_id, job_id, video_title, channel, game_title,
		        duration_label, thumbnail_url, total_segments, access_count, created_at
		 FROM walkthroughs
		 ORDER BY last_accessed DESC
		 LIMIT $1`, limit)
}

// Popular lists walkthroughs by access count, highest first.
func (r *WalkthroughRepo) Popular(ctx context.Context, limit int) ([]models.WalkthroughSummary, error) {
	return r.list(ctx,
		`SELECT video_id, job_id, video_title, channel, game_title,
		        duration_label, thumbnail_url, total_segments, access_count, created_at
		 FROM walkthroughs
		 ORDER BY access_count DESC
		 LIMIT $1`, limit)
}

// Search matches cached walkthroughs by video title, game or channel,
// ranked by access count.
func (r *WalkthroughRepo) Search(ctx context.Context, query string, limit int) ([]models.WalkthroughSummary, error) {
	return r.list(ctx,
		`SELECT video_id, job_id, video_title, channel, game_title,
		        duration_label, thumbnail_url, total_segments, access_count, created_at
		 FROM walkthroughs
		 WHERE video_title ILIKE $1 OR game_title ILIKE $1 OR channel ILIKE $1
		 ORDER BY access_count DESC
		 LIMIT $2`, "%"+query+"%", limit)
}

func (r *WalkthroughRepo) list(ctx context.Context, query string, args ...interface{}) ([]models.WalkthroughSummary, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.WalkthroughSummary{}
	for rows.Next() {
		var s models.WalkthroughSummary
		if err := rows.Scan(
			&s.VideoID, &s.JobID, &s.VideoTitle, &s.Channel, &s.GameTitle,
			&s.DurationLabel, &s.ThumbnailURL, &s.TotalSegments, &s.AccessCount, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// Stats reports cache totals for the health endpoint.
func (r *WalkthroughRepo) Stats(ctx context.Context) (*models.CacheStats, error) {
	stats := &models.CacheStats{TopGames: []models.GameCount{}}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(access_count), 0) FROM walkthroughs`,
	).Scan(&stats.TotalCached, &stats.TotalCacheHits)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT game_title, COUNT(*) AS n
		 FROM walkthroughs
		 GROUP BY game_title
		 ORDER BY n DESC
		 LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var g models.GameCount
		if err := rows.Scan(&g.Game, &g.Count); err != nil {
			return nil, err
		}
		stats.TopGames = append(stats.TopGames, g)
	}
	return stats, rows.Err()
}

// recordEvent logs a cache analytics event; failures are not fatal.
func (r *WalkthroughRepo) recordEvent(ctx context.Context, videoID, eventType string) {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO analytics (video_id, event_type) VALUES ($1, $2)",
		videoID, eventType,
	)
	if err != nil {
		log.Printf("failed to record %s event for %s: %v", eventType, videoID, err)
	}
}
