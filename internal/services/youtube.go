package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	urlpkg "net/url"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"walkgen-backend/internal/models"
	"walkgen-backend/internal/timeutil"
)

// ErrMetadataNotFound indicates the video id does not resolve to an
// existing YouTube video.
var ErrMetadataNotFound = errors.New("video not found")

type YouTubeService struct {
	data *youtubeapi.Service
}

func NewYouTubeService(ctx context.Context, apiKey string) (*YouTubeService, error) {
	data, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube Data API client: %w", err)
	}
	return &YouTubeService{data: data}, nil
}

var videoIDRegex = regexp.MustCompile(`(?:v=|/v/|youtu\.be/|embed/|shorts/)([a-zA-Z0-9_-]{11})`)
var bareVideoIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractVideoID pulls an 11-character YouTube video id out of a watch URL,
// short URL, embed URL, shorts URL or a bare id. Returns "" on no match.
func ExtractVideoID(url string) string {
	parsed, err := urlpkg.Parse(url)
	if err == nil {
		host := strings.ToLower(parsed.Host)
		path := strings.Trim(parsed.Path, "/")

		// youtube.com/watch?v=VIDEO_ID
		if strings.Contains(host, "youtube.com") {
			if v := parsed.Query().Get("v"); len(v) == 11 {
				return v
			}

			parts := strings.Split(path, "/")
			if len(parts) >= 2 {
				switch parts[0] {
				case "shorts", "embed", "v":
					if len(parts[1]) == 11 {
						return parts[1]
					}
				}
			}
		}

		// youtu.be/VIDEO_ID
		if strings.Contains(host, "youtu.be") {
			candidate := strings.Split(path, "/")[0]
			if len(candidate) == 11 {
				return candidate
			}
		}
	}

	// Fallback regex for unusual URL forms
	if m := videoIDRegex.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}

	if bareVideoIDRegex.MatchString(url) {
		return url
	}

	return ""
}

// GetMetadata fetches authoritative video metadata from the YouTube Data API.
func (s *YouTubeService) GetMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	resp, err := s.data.Videos.
		List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("YouTube Data API lookup failed for %s: %w", videoID, err)
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, videoID)
	}

	item := resp.Items[0]
	durationSec := timeutil.ParseISODuration(item.ContentDetails.Duration)

	meta := &models.VideoMetadata{
		VideoID:         videoID,
		Title:           item.Snippet.Title,
		Channel:         item.Snippet.ChannelTitle,
		DurationSeconds: durationSec,
		DurationLabel:   timeutil.FormatDuration(durationSec),
		Platform:        "youtube",
	}

	if thumb := bestThumbnail(item.Snippet.Thumbnails); thumb != "" {
		meta.ThumbnailURL = &thumb
	}

	return meta, nil
}

// Search finds gameplay/walkthrough videos matching a query. The query is
// widened with "walkthrough gameplay" and restricted to the gaming category;
// durations and view counts require a second videos.list call.
func (s *YouTubeService) Search(ctx context.Context, query string, maxResults int64) ([]models.SearchResult, error) {
	searchResp, err := s.data.Search.
		List([]string{"snippet"}).
		Q(query + " walkthrough gameplay").
		Type("video").
		MaxResults(maxResults).
		Order("relevance").
		VideoCategoryId("20").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("YouTube search failed: %w", err)
	}

	if len(searchResp.Items) == 0 {
		return []models.SearchResult{}, nil
	}

	videoIDs := make([]string, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		videoIDs = append(videoIDs, item.Id.VideoId)
	}

	detailsResp, err := s.data.Videos.
		List([]string{"contentDetails", "statistics"}).
		Id(videoIDs...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("YouTube search detail lookup failed: %w", err)
	}

	durations := make(map[string]int, len(detailsResp.Items))
	views := make(map[string]uint64, len(detailsResp.Items))
	for _, item := range detailsResp.Items {
		durations[item.Id] = timeutil.ParseISODuration(item.ContentDetails.Duration)
		if item.Statistics != nil {
			views[item.Id] = item.Statistics.ViewCount
		}
	}

	results := make([]models.SearchResult, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		vid := item.Id.VideoId
		durSec := durations[vid]

		// Very short videos are unlikely to be walkthroughs
		if durSec < 120 {
			continue
		}

		results = append(results, models.SearchResult{
			VideoID:         vid,
			Title:           item.Snippet.Title,
			Channel:         item.Snippet.ChannelTitle,
			ThumbnailURL:    bestThumbnail(item.Snippet.Thumbnails),
			DurationSeconds: durSec,
			DurationLabel:   timeutil.FormatDuration(durSec),
			Views:           views[vid],
			URL:             fmt.Sprintf("https://www.youtube.com/watch?v=%s", vid),
		})
	}

	log.Printf("YouTube search %q returned %d usable results", query, len(results))
	return results, nil
}

func bestThumbnail(t *youtubeapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	if t.High != nil {
		return t.High.Url
	}
	if t.Medium != nil {
		return t.Medium.Url
	}
	if t.Default != nil {
		return t.Default.Url
	}
	return ""
}
