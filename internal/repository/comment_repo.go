package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"walkgen-backend/internal/models"
)

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) Create(ctx context.Context, c *models.Comment) error {
	if c.Nickname == "" {
		c.Nickname = "Anonymous"
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO comments (video_id, segment_id, parent_id, nickname, comment_text)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.VideoID, c.SegmentID, c.ParentID, c.Nickname, c.Text,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	c.Reactions = map[string]int{}
	c.Replies = []*models.Comment{}
	return nil
}

// ListByVideo returns a video's comments as a threaded structure, with
// reaction counts attached. segmentID < 0 means all segments.
func (r *CommentRepo) ListByVideo(ctx context.Context, videoID string, segmentID int) ([]*models.Comment, error) {
	query := `SELECT id, video_id, segment_id, parent_id, nickname, comment_text, created_at
		FROM comments WHERE video_id = $1 ORDER BY created_at ASC`
	args := []interface{}{videoID}
	if segmentID >= 0 {
		query = `SELECT id, video_id, segment_id, parent_id, nickname, comment_text, created_at
			FROM comments WHERE video_id = $1 AND segment_id = $2 ORDER BY created_at ASC`
		args = append(args, segmentID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c := &models.Comment{Reactions: map[string]int{}, Replies: []*models.Comment{}}
		if err := rows.Scan(&c.ID, &c.VideoID, &c.SegmentID, &c.ParentID, &c.Nickname, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachReactions(ctx, comments); err != nil {
		return nil, err
	}

	// Thread replies under their parents
	byID := make(map[int64]*models.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	topLevel := []*models.Comment{}
	for _, c := range comments {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		topLevel = append(topLevel, c)
	}

	return topLevel, nil
}

func (r *CommentRepo) attachReactions(ctx context.Context, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(comments))
	byID := make(map[int64]*models.Comment, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	rows, err := r.pool.Query(ctx,
		`SELECT comment_id, emoji, COUNT(*)
		 FROM reactions
		 WHERE comment_id = ANY($1)
		 GROUP BY comment_id, emoji`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var commentID int64
		var emoji string
		var count int
		if err := rows.Scan(&commentID, &emoji, &count); err != nil {
			return err
		}
		if c, ok := byID[commentID]; ok {
			c.Reactions[emoji] = count
		}
	}
	return rows.Err()
}

// ToggleReaction adds or removes one session's emoji reaction on a comment
// and returns the updated counts.
func (r *CommentRepo) ToggleReaction(ctx context.Context, commentID int64, emoji, sessionID string) (map[string]int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM reactions WHERE comment_id = $1 AND session_id = $2 AND emoji = $3`,
		commentID, sessionID, emoji,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	if tag.RowsAffected() == 0 {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO reactions (comment_id, emoji, session_id) VALUES ($1, $2, $3)
			 ON CONFLICT (comment_id, session_id, emoji) DO NOTHING`,
			commentID, emoji, sessionID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to add reaction: %w", err)
		}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT emoji, COUNT(*) FROM reactions WHERE comment_id = $1 GROUP BY emoji`,
		commentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var e string
		var n int
		if err := rows.Scan(&e, &n); err != nil {
			return nil, err
		}
		counts[e] = n
	}
	return counts, rows.Err()
}
