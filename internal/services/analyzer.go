package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"walkgen-backend/internal/models"
)

// ErrMalformedModelOutput indicates no extraction strategy could recover a
// JSON object from the model response.
var ErrMalformedModelOutput = errors.New("could not extract JSON from model response")

const chunkPartitions = 3

const segmentationSystemPrompt = `You are WalkGen AI, an expert video game walkthrough analyst. Your job is to analyze
gameplay video transcripts and identify distinct segments with their types.

You understand gaming terminology deeply: boss fights, puzzle mechanics, exploration sequences,
collectible hunts, cutscenes, tutorials, and combat encounters.

SEGMENT TYPES:
- boss: Boss fights, mini-boss encounters, major enemy encounters
- puzzle: Environmental puzzles, riddles, logic challenges, lock mechanisms
- exploration: Open-world traversal, new area discovery, navigation, route-finding
- collectible: Item collection runs, finding secrets, hidden objects, upgrade materials
- cutscene: Story sequences, dialogue scenes, cinematics, lore dumps
- combat: Regular combat encounters (not bosses), enemy camps, waves
- tutorial: Mechanics explanations, control tutorials, ability introductions

DIFFICULTY RATINGS (for boss/puzzle/combat segments only):
- easy: Simple mechanics, low risk of failure
- medium: Moderate challenge, some skill required
- hard: Significant challenge, multiple mechanics to manage
- very hard: Extremely challenging, many players will struggle
- extreme: Top-tier difficulty, endgame-level challenge

For each segment, provide:
1. A clear, descriptive label (e.g., "Boss: Margit the Fell Omen")
2. Start and end timestamps (from the transcript timestamps)
3. A helpful description with strategy tips where relevant
4. Relevant searchable tags
5. Difficulty rating (for boss/puzzle/combat only)

Respond ONLY with valid JSON in this exact format:
{
  "game_title": "Detected Game Name",
  "segments": [
    {
      "type": "boss",
      "label": "Boss: Enemy Name",
      "start_seconds": 120,
      "end_seconds": 300,
      "description": "Description with strategy tips...",
      "tags": ["boss", "enemy-name", "area-name"],
      "difficulty": "hard"
    }
  ],
  "summary": "A 2-3 sentence summary of what this walkthrough covers."
}

IMPORTANT RULES:
- Segments should not overlap
- Segments should cover the full video timeline
- Merge very short segments (<30 seconds) into adjacent ones
- Be specific in labels, use actual boss/area/item names from the transcript
- Tags should be lowercase, searchable keywords
- difficulty is null for exploration/collectible/cutscene segments
- Timestamps must be integers (seconds)`

// llm is the single seam between the segmentation engine and the model
// provider, so extraction and merge paths are testable with canned text.
type llm interface {
	Generate(ctx context.Context, prompt string, maxTokens int32) (string, error)
}

type geminiLLM struct {
	model *genai.GenerativeModel
}

func (g *geminiLLM) Generate(ctx context.Context, prompt string, maxTokens int32) (string, error) {
	model := *g.model
	model.SetMaxOutputTokens(maxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty response")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

type AnalyzerService struct {
	client    *genai.Client
	llm       llm
	chunkSize int
	rateChan  chan struct{} // Token bucket
}

func NewAnalyzerService(apiKey string, concurrentReqs, chunkSize int) (*AnalyzerService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(segmentationSystemPrompt)},
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &AnalyzerService{
		client:    client,
		llm:       &geminiLLM{model: model},
		chunkSize: chunkSize,
		rateChan:  rateChan,
	}, nil
}

func (s *AnalyzerService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *AnalyzerService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *AnalyzerService) releaseRate() {
	s.rateChan <- struct{}{}
}

// generate brackets one model call with a rate slot, so concurrent jobs
// interleave between a chunked job's sequential calls.
func (s *AnalyzerService) generate(ctx context.Context, prompt string, maxTokens int32) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()
	return s.llm.Generate(ctx, prompt, maxTokens)
}

// AnalysisResult holds the raw segmentation output for one video. Proposals
// are untrusted until they pass through NormalizeSegments.
type AnalysisResult struct {
	GameTitle string
	Proposals []models.SegmentProposal
	Summary   string
}

type rawAnalysis struct {
	GameTitle string                   `json:"game_title"`
	Segments  []models.SegmentProposal `json:"segments"`
	Summary   string                   `json:"summary"`
}

// Analyze sends the formatted transcript to the model and returns its
// proposed segmentation. Long transcripts are analyzed in chunks.
func (s *AnalyzerService) Analyze(ctx context.Context, formatted string, video *models.VideoMetadata) (*AnalysisResult, error) {
	if len(formatted) > chunkPartitions*s.chunkSize {
		return s.analyzeChunked(ctx, formatted, video)
	}

	text, err := s.generate(ctx, buildAnalysisPrompt(video, formatted), 8000)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	return s.finishResult(raw.GameTitle, raw.Segments, []string{raw.Summary}, video.Title), nil
}

// analyzeChunked splits the transcript into contiguous line-based
// partitions, analyzes each independently and merges the results. A failed
// partition is skipped; partial coverage beats total failure.
func (s *AnalyzerService) analyzeChunked(ctx context.Context, formatted string, video *models.VideoMetadata) (*AnalysisResult, error) {
	chunks := splitIntoPartitions(formatted, chunkPartitions)

	var proposals []models.SegmentProposal
	var summaries []string
	var failures []error
	gameTitle := ""

	for i, chunk := range chunks {
		prompt := buildChunkPrompt(video, chunk, i+1, len(chunks))

		text, err := s.generate(ctx, prompt, 4000)
		if err == nil {
			var raw *rawAnalysis
			raw, err = extractJSON(text)
			if err == nil {
				proposals = append(proposals, raw.Segments...)
				if gameTitle == "" {
					gameTitle = raw.GameTitle
				}
				if raw.Summary != "" {
					summaries = append(summaries, raw.Summary)
				}
				continue
			}
		}

		log.Printf("Chunk %d/%d analysis failed: %v", i+1, len(chunks), err)
		failures = append(failures, fmt.Errorf("chunk %d: %w", i+1, err))
	}

	if len(failures) == len(chunks) {
		return nil, fmt.Errorf("all %d chunks failed: %w", len(chunks), errors.Join(failures...))
	}

	return s.finishResult(gameTitle, proposals, summaries, video.Title), nil
}

func (s *AnalyzerService) finishResult(gameTitle string, proposals []models.SegmentProposal, summaries []string, videoTitle string) *AnalysisResult {
	if gameTitle == "" {
		gameTitle = GuessGameFromTitle(videoTitle)
	}

	summary := strings.TrimSpace(strings.Join(summaries, " "))
	if summary == "" {
		summary = "AI-generated walkthrough analysis."
	}

	return &AnalysisResult{
		GameTitle: gameTitle,
		Proposals: proposals,
		Summary:   summary,
	}
}

func buildAnalysisPrompt(video *models.VideoMetadata, formatted string) string {
	return fmt.Sprintf(`Analyze this gameplay walkthrough video and identify all segments.

VIDEO INFO:
- Title: %s
- Channel: %s
- Duration: %d seconds

TRANSCRIPT:
%s

Identify every distinct segment in this walkthrough. Pay attention to:
- When the narrator mentions boss names or says "boss fight", "boss encounter"
- When puzzles or mechanics are being explained
- When exploring new areas or backtracking
- When collecting items, secrets, or upgrade materials
- When cutscenes or story moments occur
- Tutorial/explanation sections

Return the complete JSON analysis.`, video.Title, video.Channel, video.DurationSeconds, formatted)
}

func buildChunkPrompt(video *models.VideoMetadata, chunk string, part, total int) string {
	return fmt.Sprintf(`Analyze this SECTION of a gameplay walkthrough (Part %d/%d).

VIDEO: %s by %s (%ds total)

TRANSCRIPT SECTION:
%s

Return JSON with segments found in this section only.`, part, total, video.Title, video.Channel, video.DurationSeconds, chunk)
}

// splitIntoPartitions divides content into at most n contiguous,
// non-overlapping line-based partitions of near-equal size.
func splitIntoPartitions(content string, n int) []string {
	lines := strings.Split(content, "\n")
	size := (len(lines) + n - 1) / n
	if size == 0 {
		size = 1
	}

	var chunks []string
	for i := 0; i < len(lines); i += size {
		end := i + size
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, strings.Join(lines[i:end], "\n"))
	}
	return chunks
}

var codeBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON recovers the analysis object from a model response that may
// be fenced, bare JSON, or JSON buried in surrounding prose.
func extractJSON(text string) (*rawAnalysis, error) {
	if m := codeBlockRegex.FindStringSubmatch(text); len(m) > 1 {
		var raw rawAnalysis
		if err := json.Unmarshal([]byte(m[1]), &raw); err == nil {
			return &raw, nil
		}
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err == nil {
		return &raw, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		var embedded rawAnalysis
		if err := json.Unmarshal([]byte(text[start:end+1]), &embedded); err == nil {
			return &embedded, nil
		}
	}

	return nil, ErrMalformedModelOutput
}

var titleSeparators = []string{" - ", " | ", " : ", " walkthrough", " gameplay", " full "}

// GuessGameFromTitle extracts the game name from a video title using common
// "Game Name - Walkthrough" patterns. Returns the title unchanged when no
// separator is found.
func GuessGameFromTitle(title string) string {
	lower := strings.ToLower(title)
	for _, sep := range titleSeparators {
		if idx := strings.Index(lower, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return title
}
