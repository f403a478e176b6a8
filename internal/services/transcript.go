package services

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"walkgen-backend/internal/models"
	"walkgen-backend/internal/timeutil"
)

// ErrNoTranscript indicates the video has no usable captions at all.
// This is a user-facing condition, not a transient failure.
var ErrNoTranscript = errors.New("no transcript available, video needs captions")

// ProviderFailure records one transcript provider's failed attempt.
type ProviderFailure struct {
	Provider string
	Err      error
}

// FallbackError aggregates every provider's failure so operators can see
// why the whole chain came up empty.
type FallbackError struct {
	Attempts []ProviderFailure
}

func (e *FallbackError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("all %d transcript providers failed: %s", len(e.Attempts), strings.Join(parts, "; "))
}

func (e *FallbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

type TranscriptService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

func NewTranscriptService() *TranscriptService {
	return &TranscriptService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

type transcriptProvider struct {
	name  string
	fetch func(ctx context.Context, videoID string) ([]models.TranscriptEntry, error)
}

// GetTranscript tries each provider in strict priority order. A provider
// failure is logged and the next provider attempted; only when every
// provider has failed does the call fail, with each attempt's cause kept.
func (s *TranscriptService) GetTranscript(ctx context.Context, videoID string) ([]models.TranscriptEntry, error) {
	providers := []transcriptProvider{
		{"transcript-api-en", s.fetchPreferredLanguage},
		{"transcript-api-any", s.fetchAnyLanguage},
		{"caption-track", s.fetchViaCaptionTrack},
	}

	var failures []ProviderFailure
	for _, p := range providers {
		entries, err := p.fetch(ctx, videoID)
		if err != nil {
			log.Printf("Transcript provider %s failed for %s: %v", p.name, videoID, err)
			failures = append(failures, ProviderFailure{Provider: p.name, Err: err})
			continue
		}
		if len(entries) == 0 {
			failures = append(failures, ProviderFailure{Provider: p.name, Err: errors.New("empty transcript")})
			continue
		}
		log.Printf("Transcript provider %s succeeded for %s (%d entries)", p.name, videoID, len(entries))
		return entries, nil
	}

	return nil, &FallbackError{Attempts: failures}
}

func (s *TranscriptService) fetchPreferredLanguage(_ context.Context, videoID string) ([]models.TranscriptEntry, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		return nil, err
	}
	return convertAPIEntries(transcript.Entries), nil
}

func (s *TranscriptService) fetchAnyLanguage(_ context.Context, videoID string) ([]models.TranscriptEntry, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, nil)
	if err != nil {
		return nil, err
	}
	return convertAPIEntries(transcript.Entries), nil
}

func convertAPIEntries(entries []ytapi.TranscriptEntry) []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, 0, len(entries))
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		out = append(out, models.TranscriptEntry{
			Text:     text,
			Start:    e.Start,
			Duration: e.Duration,
		})
	}
	return out
}

// fetchViaCaptionTrack downloads the timedtext XML behind the video's own
// caption track list. Last resort when the transcript API is blocked.
func (s *TranscriptService) fetchViaCaptionTrack(ctx context.Context, videoID string) ([]models.TranscriptEntry, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video info: %w", err)
	}

	if len(video.CaptionTracks) == 0 {
		return nil, fmt.Errorf("video has no caption tracks")
	}

	track := video.CaptionTracks[0]
	for _, t := range video.CaptionTracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			track = t
			break
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch caption track: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption track: %w", err)
	}

	return parseCaptionsXML(body)
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func parseCaptionsXML(data []byte) ([]models.TranscriptEntry, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("failed to parse captions XML: %w", err)
	}

	entries := make([]models.TranscriptEntry, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		entries = append(entries, models.TranscriptEntry{Text: text, Start: start, Duration: dur})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("captions XML empty")
	}

	return entries, nil
}

const transcriptWindowSeconds = 30

// FormatTranscript groups caption entries into contiguous ~30-second
// windows, each prefixed with its human-readable start time. Empty input
// yields "" — callers must treat that as "no captions".
func FormatTranscript(entries []models.TranscriptEntry) string {
	if len(entries) == 0 {
		return ""
	}

	var lines []string
	windowStart := entries[0].Start
	var window []string

	flush := func() {
		if len(window) == 0 {
			return
		}
		label := timeutil.FormatDuration(int(windowStart))
		lines = append(lines, fmt.Sprintf("[%s] %s", label, strings.Join(window, " ")))
		window = window[:0]
	}

	for _, e := range entries {
		if e.Start >= windowStart+transcriptWindowSeconds {
			flush()
			windowStart = e.Start
		}
		window = append(window, e.Text)
	}
	flush()

	return strings.Join(lines, "\n")
}
